package controllers

import (
	"net/http"

	"github.com/freshharvest/market-backend/api/middleware"
	"github.com/freshharvest/market-backend/internal/session"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
)

// sessionHandle resolves the per-session services for the request. The
// session middleware guarantees an id is present on every routed request.
func sessionHandle(r *http.Request, sessions *session.Manager) (*session.Handle, error) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	handle, err := sessions.Handle(r.Context(), id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session unavailable")
	}
	return handle, nil
}
