package losses

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// TxRunner abstracts the transactional boundary for loss registration.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput registers a produce loss.
type CreateInput struct {
	IdempotencyKey string     `json:"idempotencyKey"`
	LotID          *uuid.UUID `json:"lotId,omitempty"`
	ProductID      *string    `json:"productId,omitempty"`
	LocationID     string     `json:"locationId"`
	Reason         string     `json:"reason"`
	Boxes          *int       `json:"boxes,omitempty"`
	Kg             *float64   `json:"kg,omitempty"`
	HappenedAt     time.Time  `json:"happenedAt"`
	UserID         *string    `json:"userId,omitempty"`
}

// CreateResult reports a loss registration. Losses without a lot reference
// are accepted for review only and never touch the stock ledger.
type CreateResult struct {
	Duplicated        bool       `json:"duplicated"`
	AcceptedForReview bool       `json:"acceptedForReview,omitempty"`
	RawEventID        uuid.UUID  `json:"rawEventId"`
	LossID            *uuid.UUID `json:"lossId,omitempty"`
	Flagged           bool       `json:"flagged,omitempty"`
}

// Service exposes the synchronous loss registration path.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
}

// ServiceParams carries the losses service dependencies.
type ServiceParams struct {
	Repo   Repository
	Lots   lots.Repository
	Events events.Repository
	Issues reviews.Repository
	Tx     TxRunner
	Logger *logger.Logger
}

type service struct {
	repo      Repository
	lots      lots.Repository
	eventRepo events.Repository
	issues    reviews.Repository
	tx        TxRunner
	logg      *logger.Logger
}

// NewService wires the losses service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("losses repository required")
	}
	if params.Lots == nil {
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
		lots:      params.Lots,
		eventRepo: params.Events,
		issues:    params.Issues,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.Boxes == nil && input.Kg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "informe caixas ou kg")
	}
	if input.LocationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "informe locationId")
	}
	if input.LotID == nil && input.ProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "informe lotId ou productId")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "informe reason")
	}
	if input.HappenedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "happenedAt is required")
	}

	if existing, err := s.eventRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return &CreateResult{Duplicated: true, RawEventID: existing.ID}, nil
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	if input.LotID == nil {
		return s.createWithoutLot(ctx, input, payload)
	}
	return s.createWithLot(ctx, input, payload)
}

// createWithoutLot records the event for review without any ledger effect.
func (s *service) createWithoutLot(ctx context.Context, input CreateInput, payload json.RawMessage) (*CreateResult, error) {
	var result CreateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)

		raw := &models.RawEvent{
			EventType:      enums.RawEventTypeLossRegistered,
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
			ValidationStatus: enums.ValidationStatusNeedsReview,
			ProcessingStatus: enums.ProcessingStatusPending,
		}); err != nil {
			return err
		}

		if err := s.issues.WithTx(tx).CreateIssue(ctx, &models.ValidationIssue{
			RawEventID: &raw.ID,
			Code:       enums.IssueCodeLossWithoutLot,
			Severity:   enums.AlertSeverityWarning,
			Message:    "perda sem lotId registrada para revisao, sem efeito no ledger",
		}); err != nil {
			return err
		}

		result = CreateResult{AcceptedForReview: true, RawEventID: raw.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Warn(s.logg.WithRawEventID(ctx, result.RawEventID.String()), "loss without lot queued for review")
	return &result, nil
}

func (s *service) createWithLot(ctx context.Context, input CreateInput, payload json.RawMessage) (*CreateResult, error) {
	lot, err := s.lots.FindByID(ctx, *input.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lote nao encontrado")
	}

	productID := lot.ProductID
	if input.ProductID != nil {
		productID = *input.ProductID
	}

	updates, overStock := lots.ClampDeduction(lot, lots.Deduction{Boxes: input.Boxes, Kg: input.Kg})

	validationStatus := enums.ValidationStatusValid
	if overStock {
		validationStatus = enums.ValidationStatusNeedsReview
	}

	var result CreateResult
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		lotRepo := s.lots.WithTx(tx)
		repo := s.repo.WithTx(tx)

		raw := &models.RawEvent{
			EventType:      enums.RawEventTypeLossRegistered,
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

		loss := &models.LossRecord{
			LotID:            &lot.ID,
			ProductID:        productID,
			LocationID:       &input.LocationID,
			Reason:           input.Reason,
			Boxes:            boxesOrZero(input.Boxes),
			Kg:               kgDecimal(input.Kg),
			HappenedAt:       input.HappenedAt,
			UserID:           input.UserID,
			SourceRawEventID: raw.ID,
		}
		if err := repo.Create(ctx, loss); err != nil {
			return err
		}

		if err := lotRepo.CreateMovement(ctx, &models.StockMovement{
			LotID:            lot.ID,
			MovementType:     enums.MovementTypeLoss,
			BoxesDelta:       -boxesOrZero(input.Boxes),
			KgDelta:          negatedKg(input.Kg),
			HappenedAt:       input.HappenedAt,
			UserID:           input.UserID,
			SourceRawEventID: raw.ID,
		}); err != nil {
			return err
		}

		if err := lotRepo.Update(ctx, lot.ID, updates); err != nil {
			return err
		}

		if overStock {
			if err := s.issues.WithTx(tx).CreateIssue(ctx, &models.ValidationIssue{
				RawEventID: &raw.ID,
				LotID:      &lot.ID,
				Code:       enums.IssueCodeLossOverStock,
				Severity:   enums.AlertSeverityWarning,
				Message:    "perda registrada acima do saldo disponivel",
			}); err != nil {
				return err
			}
		}

		result = CreateResult{RawEventID: raw.ID, LossID: &loss.ID, Flagged: overStock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRawEventID(ctx, result.RawEventID.String()), "loss registered")
	return &result, nil
}

func boxesOrZero(boxes *int) int {
	if boxes == nil {
		return 0
	}
	return *boxes
}

func kgDecimal(kg *float64) *decimal.Decimal {
	if kg == nil {
		return nil
	}
	d := decimal.NewFromFloat(*kg)
	return &d
}

func negatedKg(kg *float64) *decimal.Decimal {
	if kg == nil {
		return nil
	}
	d := decimal.NewFromFloat(*kg).Neg()
	return &d
}
