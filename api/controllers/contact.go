package controllers

import (
	"net/http"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/api/validators"
	"github.com/freshharvest/market-backend/pkg/logger"
)

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"omitempty,max=150"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// Contact validates the contact form submission. Nothing is delivered
// anywhere; the storefront only needs the validation verdict.
func Contact(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithField(r.Context(), "contact_subject", payload.Subject)
			logg.Info(ctx, "contact.received")
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "received"})
	}
}
