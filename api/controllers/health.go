package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/giftree-kr/giftree-backend/api/responses"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Giftree-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Giftree-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		ready := true
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				ready = false
				checks[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		if !ready {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "service not ready"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadinessDeps assembles the dependency map for the ready endpoint. Nil
// entries are reported as skipped rather than failing the probe.
func ReadinessDeps(database, cache db.Pinger) map[string]db.Pinger {
	return map[string]db.Pinger{
		"database": database,
		"redis":    cache,
	}
}
