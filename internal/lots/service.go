package lots

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// TxRunner abstracts the transactional boundary for direct lot entry paths.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntryInput registers a new lot arriving at the warehouse.
type EntryInput struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	ProductID      string    `json:"productId"`
	LocationID     string    `json:"locationId"`
	Boxes          *int      `json:"boxes,omitempty"`
	Kg             *float64  `json:"kg,omitempty"`
	HappenedAt     time.Time `json:"happenedAt"`
	UserID         *string   `json:"userId,omitempty"`
}

// MoveInput moves quantity out of an existing lot.
type MoveInput struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	FromLocationID *string   `json:"fromLocationId,omitempty"`
	ToLocationID   *string   `json:"toLocationId,omitempty"`
	Boxes          *int      `json:"boxes,omitempty"`
	Kg             *float64  `json:"kg,omitempty"`
	HappenedAt     time.Time `json:"happenedAt"`
	UserID         *string   `json:"userId,omitempty"`
}

// EntryResult reports a direct lot entry.
type EntryResult struct {
	Duplicated bool      `json:"duplicated"`
	RawEventID uuid.UUID `json:"rawEventId"`
	LotID      uuid.UUID `json:"lotId,omitempty"`
}

// MoveResult reports a direct lot movement.
type MoveResult struct {
	Duplicated bool        `json:"duplicated"`
	RawEventID uuid.UUID   `json:"rawEventId"`
	Lot        *models.Lot `json:"lot,omitempty"`
	Flagged    bool        `json:"flagged"`
}

// Service exposes the synchronous operator paths for lots.
type Service interface {
	Entry(ctx context.Context, input EntryInput) (*EntryResult, error)
	Move(ctx context.Context, lotID uuid.UUID, input MoveInput) (*MoveResult, error)
}

// ServiceParams carries the lots service dependencies.
type ServiceParams struct {
	Repo   Repository
	Events events.Repository
	Issues reviews.Repository
	Tx     TxRunner
	Logger *logger.Logger
}

type service struct {
	repo      Repository
	eventRepo events.Repository
	issues    reviews.Repository
	tx        TxRunner
	logg      *logger.Logger
}

// NewService wires the lots service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("lots repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
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
		repo:      params.Repo,
		eventRepo: params.Events,
		issues:    params.Issues,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func ensureAmount(boxes *int, kg *float64) error {
	if boxes == nil && kg == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "informe caixas ou kg")
	}
	return nil
}

func kgDecimal(kg *float64) *decimal.Decimal {
	if kg == nil {
		return nil
	}
	d := decimal.NewFromFloat(*kg)
	return &d
}

func negated(kg *float64) *decimal.Decimal {
	if kg == nil {
		return nil
	}
	d := decimal.NewFromFloat(*kg).Neg()
	return &d
}

func boxesOrZero(boxes *int) int {
	if boxes == nil {
		return 0
	}
	return *boxes
}

func (s *service) Entry(ctx context.Context, input EntryInput) (*EntryResult, error) {
	if err := ensureAmount(input.Boxes, input.Kg); err != nil {
		return nil, err
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.ProductID == "" || input.LocationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and locationId are required")
	}
	if input.HappenedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "happenedAt is required")
	}

	if existing, err := s.eventRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return &EntryResult{Duplicated: true, RawEventID: existing.ID}, nil
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	var result EntryResult
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		raw := &models.RawEvent{
			EventType:      enums.RawEventTypeLotEntryRegistered,
			IdempotencyKey: input.IdempotencyKey,
			OccurredAt:     input.HappenedAt,
			Payload:        payload,
			Source:         "pwa",
			UserID:         input.UserID,
		}
		if err := eventRepo.Create(ctx, raw); err != nil {
			return err
		}
		if err := eventRepo.CreateProcessingState(ctx, &models.RawEventProcessingState{
			RawEventID:       raw.ID,
			ValidationStatus: enums.ValidationStatusValid,
			ProcessingStatus: enums.ProcessingStatusProcessed,
			ProcessedAt:      &now,
		}); err != nil {
			return err
		}

		lot := &models.Lot{
			ProductID:         input.ProductID,
			CurrentLocationID: &input.LocationID,
			Boxes:             boxesOrZero(input.Boxes),
			Kg:                kgDecimal(input.Kg),
			EntryDate:         input.HappenedAt,
		}
		if err := repo.Create(ctx, lot); err != nil {
			return err
		}

		if err := repo.CreateMovement(ctx, &models.StockMovement{
			LotID:            lot.ID,
			MovementType:     enums.MovementTypeEntry,
			BoxesDelta:       boxesOrZero(input.Boxes),
			KgDelta:          kgDecimal(input.Kg),
			HappenedAt:       input.HappenedAt,
			ToLocationID:     &input.LocationID,
			UserID:           input.UserID,
			SourceRawEventID: raw.ID,
		}); err != nil {
			return err
		}

		result = EntryResult{RawEventID: raw.ID, LotID: lot.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRawEventID(ctx, result.RawEventID.String()), "lot entry registered")
	return &result, nil
}

func (s *service) Move(ctx context.Context, lotID uuid.UUID, input MoveInput) (*MoveResult, error) {
	if err := ensureAmount(input.Boxes, input.Kg); err != nil {
		return nil, err
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.HappenedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "happenedAt is required")
	}

	lot, err := s.repo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lote nao encontrado")
	}

	if existing, err := s.eventRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return &MoveResult{Duplicated: true, RawEventID: existing.ID}, nil
	}

	updates, overStock := ClampDeduction(lot, Deduction{Boxes: input.Boxes, Kg: input.Kg})
	if input.ToLocationID != nil {
		updates["current_location_id"] = *input.ToLocationID
	}

	payloadSource := struct {
		LotID uuid.UUID `json:"lotId"`
		MoveInput
	}{LotID: lotID, MoveInput: input}
	payload, err := json.Marshal(payloadSource)
	if err != nil {
		return nil, err
	}

	validationStatus := enums.ValidationStatusValid
	if overStock {
		validationStatus = enums.ValidationStatusNeedsReview
	}

	var result MoveResult
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		raw := &models.RawEvent{
			EventType:      enums.RawEventTypeLotMoved,
			IdempotencyKey: input.IdempotencyKey,
			OccurredAt:     input.HappenedAt,
			Payload:        payload,
			Source:         "pwa",
			UserID:         input.UserID,
		}
		if err := eventRepo.Create(ctx, raw); err != nil {
			return err
		}
		if err := eventRepo.CreateProcessingState(ctx, &models.RawEventProcessingState{
			RawEventID:       raw.ID,
			ValidationStatus: validationStatus,
			ProcessingStatus: enums.ProcessingStatusProcessed,
			ProcessedAt:      &now,
		}); err != nil {
			return err
		}

		if err := repo.Update(ctx, lot.ID, updates); err != nil {
			return err
		}

		if err := repo.CreateMovement(ctx, &models.StockMovement{
			LotID:            lot.ID,
			MovementType:     enums.MovementTypeMove,
			BoxesDelta:       -boxesOrZero(input.Boxes),
			KgDelta:          negated(input.Kg),
			HappenedAt:       input.HappenedAt,
			FromLocationID:   input.FromLocationID,
			ToLocationID:     input.ToLocationID,
			UserID:           input.UserID,
			SourceRawEventID: raw.ID,
		}); err != nil {
			return err
		}

		if overStock {
			if err := s.issues.WithTx(tx).CreateIssue(ctx, &models.ValidationIssue{
				RawEventID: &raw.ID,
				LotID:      &lot.ID,
				Code:       enums.IssueCodeMovementOverStock,
				Severity:   enums.AlertSeverityWarning,
				Message:    "movimentacao maior que saldo disponivel",
			}); err != nil {
				return err
			}
		}

		result = MoveResult{RawEventID: raw.ID, Flagged: overStock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	result.Lot = updated

	s.logg.Info(s.logg.WithRawEventID(ctx, result.RawEventID.String()), "lot movement registered")
	return &result, nil
}
