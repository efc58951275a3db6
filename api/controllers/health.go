package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/asala-storefront/api/responses"
	"github.com/angelmondragon/asala-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report readiness.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Asala-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Redis when it is configured. The chat endpoint is not
// checked; a send failure is reported per order instead.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Asala-Env", cfg.App.Env)
		if redisPinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := redisPinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
