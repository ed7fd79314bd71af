package controllers

import (
	"net/http"

	"github.com/PremPatel1010/primetech-backend/api/responses"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Primetech-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the database and session store before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, sessions db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Primetech-Env", cfg.App.Env)

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if sessions != nil {
			if err := sessions.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session store unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
