package controllers

import (
	"net/http"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/api/validators"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	"github.com/freshharvest/market-backend/pkg/config"
	"github.com/freshharvest/market-backend/pkg/logger"
)

// Recommendations serves the personalized product strip. The tier and its
// display label are returned alongside the products so the client can
// caption the section.
func Recommendations(cfg config.RecommendConfig, sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := validators.ParseQueryInt(r, "count", cfg.DefaultCount, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recommender := handle.Recommend
		responses.WriteSuccess(w, map[string]any{
			"tier":     string(recommender.Tier()),
			"level":    recommender.Level(),
			"products": recommender.Recommendations(count),
		})
	}
}

// RecentlyViewed serves the session's recently viewed product strip.
func RecentlyViewed(cfg config.RecommendConfig, sessions *sessionsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, err := sessionHandle(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := validators.ParseQueryInt(r, "count", cfg.DefaultCount, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, handle.Recommend.RecentlyViewed(count))
	}
}
