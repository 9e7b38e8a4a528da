package controllers

import (
	"net/http"

	"github.com/vincentbui21/SmartJuiceSystem/api/responses"
	"github.com/vincentbui21/SmartJuiceSystem/api/validators"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dashboard"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

// DashboardSummary returns the headline warehouse counters.
func DashboardSummary(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// DashboardDaily returns per-day production volume for the trailing window.
func DashboardDaily(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 7, 1, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.DailyTotals(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": totals})
	}
}

// DashboardActivity returns the most recent activity feed rows.
func DashboardActivity(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.RecentActivity(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": events})
	}
}
