package projection

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

const (
	defaultBatchLimit = 100
	maxErrorLen       = 2000

	invalidPayloadError = "evento invalido: campos essenciais ausentes"
)

// TxRunner abstracts the per-event transactional boundary.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BatchResult reports one projection sweep.
type BatchResult struct {
	ProcessedCount int `json:"processedCount"`
	TotalPending   int `json:"totalPending"`
}

// Service turns validated RAW events into CLEAN ledger rows.
type Service interface {
	ProcessPending(ctx context.Context, limit int) (*BatchResult, error)
	Reprocess(ctx context.Context, rawEventID uuid.UUID) error
	ReprocessFailed(ctx context.Context, limit int) (*BatchResult, error)
}

// ServiceParams carries the projection engine dependencies.
type ServiceParams struct {
	Events  events.Repository
	Lots    lots.Repository
	Losses  losses.Repository
	Returns returns.Repository
	Issues  reviews.Repository
	Tx      TxRunner
	Logger  *logger.Logger
}

type service struct {
	events  events.Repository
	lots    lots.Repository
	losses  losses.Repository
	returns returns.Repository
	issues  reviews.Repository
	tx      TxRunner
	logg    *logger.Logger
}

// NewService wires the projection engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Lots == nil {
		return nil, fmt.Errorf("lots repository required")
	}
	if params.Losses == nil {
		return nil, fmt.Errorf("losses repository required")
	}
	if params.Returns == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if params.Issues == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		events:  params.Events,
		lots:    params.Lots,
		losses:  params.Losses,
		returns: params.Returns,
		issues:  params.Issues,
		tx:      params.Tx,
		logg:    params.Logger,
	}, nil
}

func (s *service) ProcessPending(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	pending, err := s.events.ListPendingStates(ctx, limit)
	if err != nil {
		return nil, err
	}

	processed := 0
	for _, state := range pending {
		if err := s.processSingle(ctx, state.RawEventID); err != nil {
			// One bad event must not halt the batch.
			s.markFailed(ctx, state.RawEventID, err)
			continue
		}
		processed++
	}

	return &BatchResult{ProcessedCount: processed, TotalPending: len(pending)}, nil
}

func (s *service) Reprocess(ctx context.Context, rawEventID uuid.UUID) error {
	event, err := s.events.FindByID(ctx, rawEventID)
	if err != nil {
		return err
	}
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "raw event not found")
	}

	if err := s.events.UpdateState(ctx, rawEventID, map[string]any{
		"processing_status": enums.ProcessingStatusPending,
		"processed_at":      nil,
		"last_error":        nil,
	}); err != nil {
		return err
	}

	if err := s.processSingle(ctx, rawEventID); err != nil {
		s.markFailed(ctx, rawEventID, err)
		return err
	}
	return nil
}

func (s *service) ReprocessFailed(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	failed, err := s.events.ListFailedStates(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, state := range failed {
		if err := s.events.UpdateState(ctx, state.RawEventID, map[string]any{
			"processing_status": enums.ProcessingStatusPending,
			"processed_at":      nil,
			"last_error":        nil,
		}); err != nil {
			return nil, err
		}
	}

	return s.ProcessPending(ctx, limit)
}

func (s *service) processSingle(ctx context.Context, rawEventID uuid.UUID) error {
	event, err := s.events.FindByID(ctx, rawEventID)
	if err != nil {
		return err
	}
	if event == nil || event.ProcessingState == nil {
		return nil
	}
	state := event.ProcessingState

	if state.ProcessingStatus == enums.ProcessingStatusProcessed {
		return nil
	}
	if state.ValidationStatus == enums.ValidationStatusInvalid {
		// Invalid payloads are never projected.
		return s.events.UpdateState(ctx, event.ID, map[string]any{
			"processing_status": enums.ProcessingStatusFailed,
			"last_error":        invalidPayloadError,
		})
	}

	payload := events.DecodePayload(event.Payload)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		replayed, err := s.alreadyProjected(ctx, tx, event)
		if err != nil {
			return err
		}
		if !replayed {
			if err := s.project(ctx, tx, event, payload); err != nil {
				return err
			}
		}
		return s.events.WithTx(tx).UpdateState(ctx, event.ID, map[string]any{
			"processing_status": enums.ProcessingStatusProcessed,
			"processed_at":      time.Now().UTC(),
			"last_error":        nil,
		})
	})
}

// alreadyProjected is the idempotent replay guard: a derived row tagged with
// this RawEvent id means the projection already happened.
func (s *service) alreadyProjected(ctx context.Context, tx *gorm.DB, event *models.RawEvent) (bool, error) {
	switch event.EventType {
	case enums.RawEventTypeLotEntryRegistered:
		return s.lots.WithTx(tx).HasMovement(ctx, event.ID, enums.MovementTypeEntry)
	case enums.RawEventTypeLotMoved:
		return s.lots.WithTx(tx).HasMovement(ctx, event.ID, enums.MovementTypeMove)
	case enums.RawEventTypeLossRegistered:
		return s.losses.WithTx(tx).HasForSourceEvent(ctx, event.ID)
	case enums.RawEventTypeReturnRegistered:
		return s.returns.WithTx(tx).HasForSourceEvent(ctx, event.ID)
	default:
		return false, nil
	}
}

func (s *service) project(ctx context.Context, tx *gorm.DB, event *models.RawEvent, payload map[string]any) error {
	switch event.EventType {
	case enums.RawEventTypeLotEntryRegistered:
		return s.projectLotEntry(ctx, tx, event, payload)
	case enums.RawEventTypeLotMoved:
		return s.projectLotMove(ctx, tx, event, payload)
	case enums.RawEventTypeLossRegistered:
		return s.projectLoss(ctx, tx, event, payload)
	case enums.RawEventTypeReturnRegistered:
		return s.projectReturn(ctx, tx, event, payload)
	default:
		return nil
	}
}

func (s *service) projectLotEntry(ctx context.Context, tx *gorm.DB, event *models.RawEvent, payload map[string]any) error {
	lotRepo := s.lots.WithTx(tx)

	productID, _ := events.StringField(payload, "productId")
	lot := &models.Lot{
		ProductID: productID,
		Boxes:     payloadBoxes(payload),
		Kg:        payloadKg(payload),
		EntryDate: event.OccurredAt,
	}
	if locationID, ok := events.StringField(payload, "locationId"); ok {
		lot.CurrentLocationID = &locationID
	}
	if err := lotRepo.Create(ctx, lot); err != nil {
		return err
	}

	return lotRepo.CreateMovement(ctx, &models.StockMovement{
		LotID:            lot.ID,
		MovementType:     enums.MovementTypeEntry,
		BoxesDelta:       payloadBoxes(payload),
		KgDelta:          payloadKg(payload),
		HappenedAt:       event.OccurredAt,
		ToLocationID:     lot.CurrentLocationID,
		UserID:           payloadUserID(payload, event),
		SourceRawEventID: event.ID,
	})
}

func (s *service) projectLotMove(ctx context.Context, tx *gorm.DB, event *models.RawEvent, payload map[string]any) error {
	lot, err := s.findPayloadLot(ctx, tx, payload)
	if err != nil || lot == nil {
		return err
	}
	lotRepo := s.lots.WithTx(tx)

	movement := &models.StockMovement{
		LotID:            lot.ID,
		MovementType:     enums.MovementTypeMove,
		BoxesDelta:       -payloadBoxes(payload),
		KgDelta:          negate(payloadKg(payload)),
		HappenedAt:       event.OccurredAt,
		UserID:           payloadUserID(payload, event),
		SourceRawEventID: event.ID,
	}
	if from, ok := events.StringField(payload, "fromLocationId"); ok {
		movement.FromLocationID = &from
	}
	if to, ok := events.StringField(payload, "toLocationId"); ok {
		movement.ToLocationID = &to
	}
	if err := lotRepo.CreateMovement(ctx, movement); err != nil {
		return err
	}

	updates, overStock := lots.ClampDeduction(lot, payloadDeduction(payload))
	if movement.ToLocationID != nil {
		updates["current_location_id"] = *movement.ToLocationID
	}
	if err := lotRepo.Update(ctx, lot.ID, updates); err != nil {
		return err
	}

	if overStock {
		return s.issues.WithTx(tx).CreateIssue(ctx, &models.ValidationIssue{
			RawEventID: &event.ID,
			LotID:      &lot.ID,
			Code:       enums.IssueCodeMovementOverStock,
			Severity:   enums.AlertSeverityWarning,
			Message:    "movimentacao maior que saldo disponivel",
		})
	}
	return nil
}

func (s *service) projectLoss(ctx context.Context, tx *gorm.DB, event *models.RawEvent, payload map[string]any) error {
	lot, err := s.findPayloadLot(ctx, tx, payload)
	if err != nil || lot == nil {
		// Losses without a resolvable lot have no ledger effect.
		return err
	}
	lotRepo := s.lots.WithTx(tx)

	productID := lot.ProductID
	if p, ok := events.StringField(payload, "productId"); ok {
		productID = p
	}
	reason, ok := events.StringField(payload, "reason")
	if !ok {
		reason = "nao_informado"
	}

	loss := &models.LossRecord{
		LotID:            &lot.ID,
		ProductID:        productID,
		Reason:           reason,
		Boxes:            payloadBoxes(payload),
		Kg:               payloadKg(payload),
		HappenedAt:       event.OccurredAt,
		UserID:           payloadUserID(payload, event),
		SourceRawEventID: event.ID,
	}
	if locationID, ok := events.StringField(payload, "locationId"); ok {
		loss.LocationID = &locationID
	}
	if err := s.losses.WithTx(tx).Create(ctx, loss); err != nil {
		return err
	}

	if err := lotRepo.CreateMovement(ctx, &models.StockMovement{
		LotID:            lot.ID,
		MovementType:     enums.MovementTypeLoss,
		BoxesDelta:       -payloadBoxes(payload),
		KgDelta:          negate(payloadKg(payload)),
		HappenedAt:       event.OccurredAt,
		UserID:           payloadUserID(payload, event),
		SourceRawEventID: event.ID,
	}); err != nil {
		return err
	}

	updates, overStock := lots.ClampDeduction(lot, payloadDeduction(payload))
	if err := lotRepo.Update(ctx, lot.ID, updates); err != nil {
		return err
	}

	if overStock {
		return s.issues.WithTx(tx).CreateIssue(ctx, &models.ValidationIssue{
			RawEventID: &event.ID,
			LotID:      &lot.ID,
			Code:       enums.IssueCodeLossOverStock,
			Severity:   enums.AlertSeverityWarning,
			Message:    "perda registrada acima do saldo disponivel",
		})
	}
	return nil
}

func (s *service) projectReturn(ctx context.Context, tx *gorm.DB, event *models.RawEvent, payload map[string]any) error {
	clientID, _ := events.StringField(payload, "clientId")
	storeID, _ := events.StringField(payload, "storeId")
	reason, ok := events.StringField(payload, "reason")
	if !ok {
		reason = "nao_informado"
	}

	record := &models.ReturnRecord{
		ClientID:         clientID,
		StoreID:          storeID,
		Reason:           reason,
		Boxes:            payloadBoxes(payload),
		Kg:               payloadKg(payload),
		HappenedAt:       event.OccurredAt,
		UserID:           payloadUserID(payload, event),
		SourceRawEventID: event.ID,
	}
	if productID, ok := events.StringField(payload, "productId"); ok {
		record.ProductID = &productID
	}
	if photoURL, ok := events.StringField(payload, "photoUrl"); ok {
		record.PhotoURL = &photoURL
	}

	lot, err := s.findPayloadLot(ctx, tx, payload)
	if err != nil {
		return err
	}
	if lot != nil {
		record.LotID = &lot.ID
	}
	if err := s.returns.WithTx(tx).Create(ctx, record); err != nil {
		return err
	}

	if lot != nil {
		return s.lots.WithTx(tx).CreateMovement(ctx, &models.StockMovement{
			LotID:            lot.ID,
			MovementType:     enums.MovementTypeReturn,
			BoxesDelta:       -payloadBoxes(payload),
			KgDelta:          negate(payloadKg(payload)),
			HappenedAt:       event.OccurredAt,
			UserID:           payloadUserID(payload, event),
			SourceRawEventID: event.ID,
		})
	}
	return nil
}

func (s *service) findPayloadLot(ctx context.Context, tx *gorm.DB, payload map[string]any) (*models.Lot, error) {
	raw, ok := events.StringField(payload, "lotId")
	if !ok {
		return nil, nil
	}
	lotID, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return s.lots.WithTx(tx).FindByID(ctx, lotID)
}

func (s *service) markFailed(ctx context.Context, rawEventID uuid.UUID, cause error) {
	message := truncateError(cause.Error())
	if err := s.events.UpdateState(ctx, rawEventID, map[string]any{
		"processing_status": enums.ProcessingStatusFailed,
		"last_error":        message,
	}); err != nil {
		s.logg.Error(ctx, "marking event failed", err)
		return
	}
	s.logg.Warn(s.logg.WithRawEventID(ctx, rawEventID.String()), fmt.Sprintf("projection failed: %s", message))
}

// truncateError caps a stored error message at maxErrorLen bytes without
// cutting through a multi-byte rune.
func truncateError(message string) string {
	if len(message) <= maxErrorLen {
		return message
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

func payloadBoxes(payload map[string]any) int {
	boxes, ok := events.NumberField(payload, "boxes")
	if !ok {
		return 0
	}
	return int(boxes)
}

func payloadKg(payload map[string]any) *decimal.Decimal {
	kg, ok := events.NumberField(payload, "kg")
	if !ok {
		return nil
	}
	d := decimal.NewFromFloat(kg)
	return &d
}

func payloadDeduction(payload map[string]any) lots.Deduction {
	var d lots.Deduction
	if boxes, ok := events.NumberField(payload, "boxes"); ok {
		b := int(boxes)
		d.Boxes = &b
	}
	if kg, ok := events.NumberField(payload, "kg"); ok {
		v := kg
		d.Kg = &v
	}
	return d
}

func payloadUserID(payload map[string]any, event *models.RawEvent) *string {
	if userID, ok := events.StringField(payload, "userId"); ok {
		return &userID
	}
	return event.UserID
}

func negate(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	n := d.Neg()
	return &n
}
