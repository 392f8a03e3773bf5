package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bomjesus/armazem-backend/api/responses"
	"github.com/bomjesus/armazem-backend/api/validators"
	"github.com/bomjesus/armazem-backend/internal/alerts"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// AlertsListRules lists every alert rule, enabled or not.
func AlertsListRules(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rules, err := svc.ListRules(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

// AlertsUpdateRule tunes one alert rule by its key.
func AlertsUpdateRule(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input alerts.UpdateRuleInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rule, err := svc.UpdateRule(ctx, chi.URLParam(r, "ruleKey"), input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// AlertsListEvents lists recently fired alerts, newest first.
func AlertsListEvents(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := svc.ListEvents(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

// AlertsRun triggers an alert sweep outside the scheduled cadence.
func AlertsRun(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		result, err := svc.RunAlerts(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AlertsSavePushSubscription stores a browser push subscription.
func AlertsSavePushSubscription(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input alerts.SubscriptionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SavePushSubscription(ctx, input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]bool{"saved": true})
	}
}

// AlertsVAPIDPublicKey exposes the public VAPID key for push registration.
func AlertsVAPIDPublicKey(svc alerts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"publicKey": svc.VAPIDPublicKey()})
	}
}
