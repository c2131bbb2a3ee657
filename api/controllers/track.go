package controllers

import (
	"net/http"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/api/validators"
	"github.com/freshharvest/market-backend/internal/catalog"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/logger"
)

type trackViewRequest struct {
	ProductID int `json:"productId" validate:"required,min=1"`
}

// TrackView records a product detail view against the session profile.
func TrackView(c *catalog.Catalog, sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackViewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, ok := c.GetByID(payload.ProductID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		handle.Tracker.TrackView(r.Context(), product)
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"interactions": handle.Tracker.InteractionCount(),
		})
	}
}

type trackSearchRequest struct {
	Query        string `json:"query" validate:"required"`
	ResultsCount int    `json:"resultsCount" validate:"omitempty,min=0"`
}

// TrackSearch records a search submission against the session profile.
func TrackSearch(sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload trackSearchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle.Tracker.TrackSearch(r.Context(), payload.Query, payload.ResultsCount)
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"interactions": handle.Tracker.InteractionCount(),
		})
	}
}
