package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	dbtypes "github.com/bomjesus/armazem-backend/pkg/db/types"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// Alert recipients are managers and admins only.
var recipientRoles = []enums.UserRole{enums.UserRoleManager, enums.UserRoleAdmin}

// RunResult reports one alert sweep. Fired counts rules that reached
// delivery fan-out, Skipped counts rules held back by cooldown. A rule
// that evaluates quiet lands in neither bucket.
type RunResult struct {
	Fired   int `json:"fired"`
	Skipped int `json:"skipped"`
}

// UpdateRuleInput carries the operator-tunable fields of an alert rule.
type UpdateRuleInput struct {
	Enabled         *bool           `json:"enabled,omitempty"`
	Severity        *string         `json:"severity,omitempty"`
	CooldownMinutes *int            `json:"cooldownMinutes,omitempty"`
	Channels        []string        `json:"channels,omitempty"`
	Params          json.RawMessage `json:"params,omitempty"`
}

// SubscriptionInput is one browser push subscription for a user.
type SubscriptionInput struct {
	UserID   uuid.UUID `json:"userId"`
	Endpoint string    `json:"endpoint"`
	P256dh   string    `json:"p256dh"`
	Auth     string    `json:"auth"`
}

// Service evaluates alert rules and fans fired alerts out to channels.
type Service interface {
	Seed(ctx context.Context) error
	RunAlerts(ctx context.Context) (*RunResult, error)
	ListRules(ctx context.Context) ([]models.AlertRule, error)
	UpdateRule(ctx context.Context, ruleKey string, input UpdateRuleInput) (*models.AlertRule, error)
	ListEvents(ctx context.Context, limit int) ([]models.AlertEvent, error)
	SavePushSubscription(ctx context.Context, input SubscriptionInput) error
	VAPIDPublicKey() string
}

// ServiceParams carries the alerting dependencies.
type ServiceParams struct {
	Repo    Repository
	Events  events.Repository
	Losses  losses.Repository
	Returns returns.Repository
	Email   EmailSender
	Push    PushSender
	WebPush config.WebPushConfig
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	events  events.Repository
	losses  losses.Repository
	returns returns.Repository
	email   EmailSender
	push    PushSender
	webPush config.WebPushConfig
	logg    *logger.Logger
}

// NewService wires the alert engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Losses == nil {
		return nil, fmt.Errorf("losses repository required")
	}
	if params.Returns == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if params.Email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Push == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		events:  params.Events,
		losses:  params.Losses,
		returns: params.Returns,
		email:   params.Email,
		push:    params.Push,
		webPush: params.WebPush,
		logg:    params.Logger,
	}, nil
}

// Seed creates the default alert rules when absent. Existing rules are left
// untouched so operator tuning survives restarts.
func (s *service) Seed(ctx context.Context) error {
	for _, rule := range defaultRules() {
		existing, err := s.repo.FindRuleByKey(ctx, rule.RuleKey)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		seeded := rule
		if err := s.repo.CreateRule(ctx, &seeded); err != nil {
			return err
		}
		s.logg.Info(ctx, fmt.Sprintf("seeded alert rule %s", rule.RuleKey))
	}
	return nil
}

func (s *service) RunAlerts(ctx context.Context) (*RunResult, error) {
	rules, err := s.repo.ListEnabledRules(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &RunResult{}
	var runErr error

	for _, rule := range rules {
		cooling, err := s.inCooldown(ctx, rule, now)
		if err != nil {
			runErr = multierr.Append(runErr, err)
			continue
		}
		if cooling {
			result.Skipped++
			continue
		}

		firings, err := s.evaluate(ctx, rule, now)
		if err != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("evaluating %s: %w", rule.RuleKey, err))
			continue
		}
		if len(firings) == 0 {
			continue
		}

		delivered, err := s.deliver(ctx, rule, firings, now)
		if err != nil {
			runErr = multierr.Append(runErr, err)
		}
		if delivered {
			result.Fired++
		}
	}

	return result, runErr
}

func (s *service) inCooldown(ctx context.Context, rule models.AlertRule, now time.Time) (bool, error) {
	latest, err := s.repo.LatestSentEvent(ctx, rule.RuleKey)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return false, nil
	}
	cooldown := time.Duration(rule.CooldownMinutes) * time.Minute
	return now.Sub(latest.FiredAt) < cooldown, nil
}

func (s *service) evaluate(ctx context.Context, rule models.AlertRule, now time.Time) ([]Firing, error) {
	switch rule.RuleKey {
	case RuleEstoqueMadura:
		return s.evaluateEstoqueMadura(ctx, rule.Params)
	case RulePerdasDia:
		return s.evaluatePerdasDia(ctx, rule.Params, now)
	case RuleDevolucoesCliente7d:
		return s.evaluateDevolucoes(ctx, rule.Params, now)
	case RuleRawPendingBacklog:
		return s.evaluateBacklog(ctx, rule.Params, now)
	default:
		s.logg.Warn(ctx, fmt.Sprintf("no evaluator for alert rule %s", rule.RuleKey))
		return nil, nil
	}
}

// deliver creates one AlertEvent per firing, channel and recipient, then
// attempts delivery and records the outcome on each event. It reports
// whether fan-out started at all; without active recipients no events are
// created and the rule does not count as fired.
func (s *service) deliver(ctx context.Context, rule models.AlertRule, firings []Firing, now time.Time) (bool, error) {
	recipients, err := s.repo.ListActiveUsersByRoles(ctx, recipientRoles)
	if err != nil {
		return false, err
	}
	if len(recipients) == 0 {
		s.logg.Warn(ctx, fmt.Sprintf("alert rule %s fired with no active recipients", rule.RuleKey))
		return false, nil
	}

	var deliveryErr error
	for _, firing := range firings {
		contextJSON, err := json.Marshal(firing.Context)
		if err != nil {
			deliveryErr = multierr.Append(deliveryErr, err)
			continue
		}

		for _, raw := range rule.Channels {
			channel := enums.AlertChannel(raw)
			if !channel.IsValid() {
				continue
			}
			for _, user := range recipients {
				event := &models.AlertEvent{
					AlertRuleID:    rule.ID,
					RuleKey:        rule.RuleKey,
					Severity:       firing.Severity,
					Title:          firing.Title,
					Body:           firing.Body,
					Context:        contextJSON,
					Channel:        channel,
					RecipientID:    user.ID,
					DeliveryStatus: enums.AlertDeliveryStatusPending,
					FiredAt:        now,
				}
				if err := s.repo.CreateEvent(ctx, event); err != nil {
					deliveryErr = multierr.Append(deliveryErr, err)
					continue
				}
				if err := s.send(ctx, channel, user, firing); err != nil {
					deliveryErr = multierr.Append(deliveryErr, err)
					s.markEventFailed(ctx, event.ID, err)
					continue
				}
				sentAt := time.Now().UTC()
				if err := s.repo.UpdateEvent(ctx, event.ID, map[string]any{
					"delivery_status": enums.AlertDeliveryStatusSent,
					"delivered_at":    sentAt,
				}); err != nil {
					deliveryErr = multierr.Append(deliveryErr, err)
				}
			}
		}
	}
	return true, deliveryErr
}

func (s *service) send(ctx context.Context, channel enums.AlertChannel, user models.User, firing Firing) error {
	switch channel {
	case enums.AlertChannelEmail:
		subject := fmt.Sprintf("[%s] %s", firing.Severity, firing.Title)
		return s.email.Send(ctx, user.Email, subject, firing.Body)

	case enums.AlertChannelPush:
		sub, err := s.repo.FindPushSubscription(ctx, user.ID)
		if err != nil {
			return err
		}
		if sub == nil {
			return fmt.Errorf("user %s has no push subscription", user.ID)
		}
		payload, err := json.Marshal(map[string]any{
			"title":    firing.Title,
			"body":     firing.Body,
			"severity": firing.Severity,
		})
		if err != nil {
			return err
		}
		return s.push.Send(ctx, sub, payload)

	default:
		return fmt.Errorf("unknown alert channel %s", channel)
	}
}

func (s *service) markEventFailed(ctx context.Context, eventID uuid.UUID, cause error) {
	message := cause.Error()
	if err := s.repo.UpdateEvent(ctx, eventID, map[string]any{
		"delivery_status": enums.AlertDeliveryStatusFailed,
		"delivery_error":  message,
	}); err != nil {
		s.logg.Error(ctx, "marking alert delivery failed", err)
	}
}

func (s *service) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []models.AlertRule{}
	}
	return rules, nil
}

func (s *service) UpdateRule(ctx context.Context, ruleKey string, input UpdateRuleInput) (*models.AlertRule, error) {
	rule, err := s.repo.FindRuleByKey(ctx, ruleKey)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "alert rule not found")
	}

	updates := map[string]any{}
	if input.Enabled != nil {
		updates["enabled"] = *input.Enabled
	}
	if input.Severity != nil {
		severity, err := enums.ParseAlertSeverity(*input.Severity)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		updates["severity"] = severity
	}
	if input.CooldownMinutes != nil {
		if *input.CooldownMinutes < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooldownMinutes must not be negative")
		}
		updates["cooldown_minutes"] = *input.CooldownMinutes
	}
	if input.Channels != nil {
		for _, raw := range input.Channels {
			if !enums.AlertChannel(raw).IsValid() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid alert channel %q", raw))
			}
		}
		updates["channels"] = dbtypes.StringArray(input.Channels)
	}
	if len(input.Params) > 0 {
		if !json.Valid(input.Params) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "params must be valid JSON")
		}
		updates["params"] = input.Params
	}
	if len(updates) == 0 {
		return rule, nil
	}

	if err := s.repo.UpdateRule(ctx, rule.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindRuleByKey(ctx, ruleKey)
}

func (s *service) ListEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	events, err := s.repo.ListRecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.AlertEvent{}
	}
	return events, nil
}

func (s *service) SavePushSubscription(ctx context.Context, input SubscriptionInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "userId is required")
	}
	if input.Endpoint == "" || input.P256dh == "" || input.Auth == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "endpoint, p256dh and auth are required")
	}
	return s.repo.UpsertPushSubscription(ctx, &models.PushSubscription{
		UserID:   input.UserID,
		Endpoint: input.Endpoint,
		P256dh:   input.P256dh,
		Auth:     input.Auth,
	})
}

func (s *service) VAPIDPublicKey() string {
	return s.webPush.VAPIDPublicKey
}
