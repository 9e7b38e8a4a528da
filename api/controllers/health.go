package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

const healthCheckTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mehustaja-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API can reach its backing services.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP pinger, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mehustaja-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = checkDependency(ctx, dbP)
		checks["redis"] = checkDependency(ctx, redisP)
		for name, status := range checks {
			if status != "ok" && status != "skipped" {
				healthy = false
				logg.Warn(logg.WithField(ctx, "dependency", name), "readiness check failed")
			}
		}

		payload := map[string]any{"status": "ready", "checks": checks}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func checkDependency(ctx context.Context, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
