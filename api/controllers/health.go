package controllers

import (
	"net/http"

	"github.com/freshharvest/market-backend/api/responses"
	"github.com/freshharvest/market-backend/pkg/config"
	pkgerrors "github.com/freshharvest/market-backend/pkg/errors"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FreshHarvest-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FreshHarvest-Env", cfg.App.Env)

		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "storage not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{
			"status":  "ready",
			"storage": cfg.Storage.NormalizedDriver(),
		})
	}
}
