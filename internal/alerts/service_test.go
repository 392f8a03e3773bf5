package alerts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

type fakeRepo struct {
	Repository

	rules        []models.AlertRule
	latestSent   map[string]*models.AlertEvent
	recipients   []models.User
	subs         map[uuid.UUID]*models.PushSubscription
	maduraTotals []MaduraProductTotal

	createdRules  []*models.AlertRule
	createdEvents []*models.AlertEvent
	eventUpdates  []map[string]any
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	var enabled []models.AlertRule
	for _, rule := range f.rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled, nil
}

func (f *fakeRepo) FindRuleByKey(ctx context.Context, ruleKey string) (*models.AlertRule, error) {
	for i := range f.rules {
		if f.rules[i].RuleKey == ruleKey {
			return &f.rules[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	f.createdRules = append(f.createdRules, rule)
	return nil
}

func (f *fakeRepo) LatestSentEvent(ctx context.Context, ruleKey string) (*models.AlertEvent, error) {
	return f.latestSent[ruleKey], nil
}

func (f *fakeRepo) CreateEvent(ctx context.Context, event *models.AlertEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.createdEvents = append(f.createdEvents, event)
	return nil
}

func (f *fakeRepo) UpdateEvent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	withID := map[string]any{"id": id}
	for k, v := range updates {
		withID[k] = v
	}
	f.eventUpdates = append(f.eventUpdates, withID)
	return nil
}

func (f *fakeRepo) ListActiveUsersByRoles(ctx context.Context, roles []enums.UserRole) ([]models.User, error) {
	return f.recipients, nil
}

func (f *fakeRepo) FindPushSubscription(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error) {
	return f.subs[userID], nil
}

func (f *fakeRepo) MaduraProductTotals(ctx context.Context) ([]MaduraProductTotal, error) {
	return f.maduraTotals, nil
}

type fakeEventsRepo struct {
	events.Repository

	pendingCount int64
	oldestAge    time.Duration
}

func (f *fakeEventsRepo) CountByProcessingStatus(ctx context.Context, status enums.ProcessingStatus) (int64, error) {
	return f.pendingCount, nil
}

func (f *fakeEventsRepo) OldestPendingIngestedAt(ctx context.Context) (*time.Time, error) {
	if f.oldestAge == 0 {
		return nil, nil
	}
	at := time.Now().UTC().Add(-f.oldestAge)
	return &at, nil
}

type fakeLossesRepo struct {
	losses.Repository
	totals []losses.DailyTotal
}

func (f *fakeLossesRepo) DailyBoxTotals(ctx context.Context, from, to time.Time) ([]losses.DailyTotal, error) {
	return f.totals, nil
}

type fakeReturnsRepo struct {
	returns.Repository
	last7  []returns.ClientTotal
	last28 []returns.ClientTotal
}

func (f *fakeReturnsRepo) ClientBoxTotals(ctx context.Context, from, to time.Time) ([]returns.ClientTotal, error) {
	if time.Since(from) > 8*24*time.Hour {
		return f.last28, nil
	}
	return f.last7, nil
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakePush struct {
	sent int
	err  error
}

func (f *fakePush) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	return nil
}

type harness struct {
	repo    *fakeRepo
	events  *fakeEventsRepo
	losses  *fakeLossesRepo
	returns *fakeReturnsRepo
	email   *fakeEmail
	push    *fakePush
	svc     Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:    &fakeRepo{latestSent: map[string]*models.AlertEvent{}, subs: map[uuid.UUID]*models.PushSubscription{}},
		events:  &fakeEventsRepo{},
		losses:  &fakeLossesRepo{},
		returns: &fakeReturnsRepo{},
		email:   &fakeEmail{},
		push:    &fakePush{},
	}
	svc, err := NewService(ServiceParams{
		Repo:    h.repo,
		Events:  h.events,
		Losses:  h.losses,
		Returns: h.returns,
		Email:   h.email,
		Push:    h.push,
		WebPush: config.WebPushConfig{VAPIDPublicKey: "pub-key"},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func enabledRule(ruleKey string, cooldownMinutes int, channels ...enums.AlertChannel) models.AlertRule {
	rule := models.AlertRule{
		ID:              uuid.New(),
		RuleKey:         ruleKey,
		Enabled:         true,
		Severity:        enums.AlertSeverityWarning,
		CooldownMinutes: cooldownMinutes,
	}
	for _, channel := range channels {
		rule.Channels = append(rule.Channels, string(channel))
	}
	return rule
}

func TestRunAlerts_CooldownSkipsRule(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 120, enums.AlertChannelEmail)}
	h.repo.latestSent[RuleEstoqueMadura] = &models.AlertEvent{FiredAt: time.Now().UTC().Add(-10 * time.Minute)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 100}}
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}

	result, err := h.svc.RunAlerts(context.Background())
	if err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if result.Fired != 0 || result.Skipped != 1 {
		t.Fatalf("expected cooldown skip, got %+v", result)
	}
	if len(h.repo.createdEvents) != 0 {
		t.Fatal("no alert events may be created during cooldown")
	}
}

func TestRunAlerts_CooldownExpiredFires(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 120, enums.AlertChannelEmail)}
	h.repo.latestSent[RuleEstoqueMadura] = &models.AlertEvent{FiredAt: time.Now().UTC().Add(-3 * time.Hour)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 100}}
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}

	result, err := h.svc.RunAlerts(context.Background())
	if err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if result.Fired != 1 {
		t.Fatalf("expected one firing, got %+v", result)
	}
	if len(h.email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(h.email.sent))
	}
}

func TestRunAlerts_SeverityByThreshold(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 0, enums.AlertChannelEmail)}
	h.repo.maduraTotals = []MaduraProductTotal{
		{ProductID: "manga", Boxes: 55},
		{ProductID: "banana", Boxes: 25},
		{ProductID: "mamao", Boxes: 10},
	}
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}

	result, err := h.svc.RunAlerts(context.Background())
	if err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if result.Fired != 1 {
		t.Fatalf("expected one fired rule, got %+v", result)
	}
	if len(h.repo.createdEvents) != 1 {
		t.Fatalf("expected a single aggregated event, got %d", len(h.repo.createdEvents))
	}
	event := h.repo.createdEvents[0]
	if event.Severity != enums.AlertSeverityCritical {
		t.Fatalf("any product over the critical line must escalate, got %s", event.Severity)
	}
	if !strings.Contains(event.Body, "manga") || !strings.Contains(event.Body, "banana") {
		t.Fatalf("body must list every offending product, got %q", event.Body)
	}
	if strings.Contains(event.Body, "mamao") {
		t.Fatalf("products under the warning line must not appear, got %q", event.Body)
	}
}

func TestRunAlerts_QuietRuleCountsNowhere(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 0, enums.AlertChannelEmail)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 5}}
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}

	result, err := h.svc.RunAlerts(context.Background())
	if err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if result.Fired != 0 || result.Skipped != 0 {
		t.Fatalf("quiet rule must land in neither bucket, got %+v", result)
	}
	if len(h.repo.createdEvents) != 0 {
		t.Fatal("no alert events may be created for a quiet rule")
	}
}

func TestRunAlerts_NoActiveRecipients(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 0, enums.AlertChannelEmail)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 100}}

	result, err := h.svc.RunAlerts(context.Background())
	if err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if result.Fired != 0 {
		t.Fatalf("rule without recipients must not count as fired, got %+v", result)
	}
	if len(h.repo.createdEvents) != 0 {
		t.Fatal("no alert events may be created without recipients")
	}
	if len(h.email.sent) != 0 {
		t.Fatal("no delivery may be attempted without recipients")
	}
}

func TestRunAlerts_FansOutPerChannelAndRecipient(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 0, enums.AlertChannelPush, enums.AlertChannelEmail)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 100}}

	managerA := models.User{ID: uuid.New(), Email: "a@bomjesus.local", Role: enums.UserRoleManager}
	managerB := models.User{ID: uuid.New(), Email: "b@bomjesus.local", Role: enums.UserRoleAdmin}
	h.repo.recipients = []models.User{managerA, managerB}
	h.repo.subs[managerA.ID] = &models.PushSubscription{UserID: managerA.ID, Endpoint: "https://push/a"}
	h.repo.subs[managerB.ID] = &models.PushSubscription{UserID: managerB.ID, Endpoint: "https://push/b"}

	if _, err := h.svc.RunAlerts(context.Background()); err != nil {
		t.Fatalf("RunAlerts: %v", err)
	}
	if len(h.repo.createdEvents) != 4 {
		t.Fatalf("expected 4 alert events (2 channels x 2 recipients), got %d", len(h.repo.createdEvents))
	}
	if h.push.sent != 2 || len(h.email.sent) != 2 {
		t.Fatalf("expected 2 pushes and 2 emails, got %d/%d", h.push.sent, len(h.email.sent))
	}
	for _, update := range h.repo.eventUpdates {
		if update["delivery_status"] != enums.AlertDeliveryStatusSent {
			t.Fatalf("expected SENT updates, got %v", update)
		}
	}
}

func TestRunAlerts_FailedDeliveryRecordsError(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleRawPendingBacklog, 0, enums.AlertChannelEmail)}
	h.events.pendingCount = 200
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}
	h.email.err = fmt.Errorf("smtp unavailable")

	result, err := h.svc.RunAlerts(context.Background())
	if err == nil {
		t.Fatal("expected delivery error to surface")
	}
	if result == nil || result.Fired != 1 {
		t.Fatalf("delivery failure must not hide the firing, got %+v", result)
	}
	if len(h.repo.eventUpdates) != 1 {
		t.Fatalf("expected one event update, got %d", len(h.repo.eventUpdates))
	}
	update := h.repo.eventUpdates[0]
	if update["delivery_status"] != enums.AlertDeliveryStatusFailed {
		t.Fatalf("expected FAILED update, got %v", update)
	}
	if update["delivery_error"] != "smtp unavailable" {
		t.Fatalf("expected delivery error recorded, got %v", update)
	}
}

func TestRunAlerts_PushWithoutSubscriptionFails(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 0, enums.AlertChannelPush)}
	h.repo.maduraTotals = []MaduraProductTotal{{ProductID: "banana", Boxes: 100}}
	h.repo.recipients = []models.User{{ID: uuid.New(), Email: "gerente@bomjesus.local"}}

	if _, err := h.svc.RunAlerts(context.Background()); err == nil {
		t.Fatal("expected error for missing push subscription")
	}
	if h.push.sent != 0 {
		t.Fatal("push must not be attempted without a subscription")
	}
	if len(h.repo.eventUpdates) != 1 || h.repo.eventUpdates[0]["delivery_status"] != enums.AlertDeliveryStatusFailed {
		t.Fatalf("expected FAILED update, got %v", h.repo.eventUpdates)
	}
}

func TestSeed_SkipsExistingRules(t *testing.T) {
	h := newHarness(t)
	h.repo.rules = []models.AlertRule{enabledRule(RuleEstoqueMadura, 120, enums.AlertChannelEmail)}

	if err := h.svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(h.repo.createdRules) != 3 {
		t.Fatalf("expected 3 new rules, got %d", len(h.repo.createdRules))
	}
	for _, rule := range h.repo.createdRules {
		if rule.RuleKey == RuleEstoqueMadura {
			t.Fatal("existing rule must not be recreated")
		}
	}
}

func TestVAPIDPublicKey(t *testing.T) {
	h := newHarness(t)
	if got := h.svc.VAPIDPublicKey(); got != "pub-key" {
		t.Fatalf("unexpected VAPID key %q", got)
	}
}
