package returns

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
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// TxRunner abstracts the transactional boundary for return registration.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput registers a client return.
type CreateInput struct {
	IdempotencyKey string     `json:"idempotencyKey"`
	LotID          *uuid.UUID `json:"lotId,omitempty"`
	ClientID       string     `json:"clientId"`
	StoreID        string     `json:"storeId"`
	ProductID      *string    `json:"productId,omitempty"`
	Reason         string     `json:"reason"`
	Boxes          *int       `json:"boxes,omitempty"`
	Kg             *float64   `json:"kg,omitempty"`
	PhotoURL       *string    `json:"photoUrl,omitempty"`
	HappenedAt     time.Time  `json:"happenedAt"`
	UserID         *string    `json:"userId,omitempty"`
}

// CreateResult reports a return registration.
type CreateResult struct {
	Duplicated bool      `json:"duplicated"`
	RawEventID uuid.UUID `json:"rawEventId"`
	ReturnID   uuid.UUID `json:"returnId,omitempty"`
}

// Service exposes the synchronous return registration path.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
}

// ServiceParams carries the returns service dependencies.
type ServiceParams struct {
	Repo   Repository
	Lots   lots.Repository
	Events events.Repository
	Tx     TxRunner
	Logger *logger.Logger
}

type service struct {
	repo      Repository
	lots      lots.Repository
	eventRepo events.Repository
	tx        TxRunner
	logg      *logger.Logger
}

// NewService wires the returns service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if params.Lots == nil {
		return nil, fmt.Errorf("lots repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
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
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.Boxes == nil && input.Kg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "informe caixas ou kg")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.ClientID == "" || input.StoreID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clientId and storeId are required")
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

	var result CreateResult
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		raw := &models.RawEvent{
			EventType:      enums.RawEventTypeReturnRegistered,
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

		record := &models.ReturnRecord{
			LotID:            input.LotID,
			ClientID:         input.ClientID,
			StoreID:          input.StoreID,
			ProductID:        input.ProductID,
			Reason:           input.Reason,
			Boxes:            boxesOrZero(input.Boxes),
			Kg:               kgDecimal(input.Kg),
			PhotoURL:         input.PhotoURL,
			HappenedAt:       input.HappenedAt,
			UserID:           input.UserID,
			SourceRawEventID: raw.ID,
		}
		if err := repo.Create(ctx, record); err != nil {
			return err
		}

		if input.LotID != nil {
			if err := s.lots.WithTx(tx).CreateMovement(ctx, &models.StockMovement{
				LotID:            *input.LotID,
				MovementType:     enums.MovementTypeReturn,
				BoxesDelta:       -boxesOrZero(input.Boxes),
				KgDelta:          negatedKg(input.Kg),
				HappenedAt:       input.HappenedAt,
				UserID:           input.UserID,
				SourceRawEventID: raw.ID,
			}); err != nil {
				return err
			}
		}

		result = CreateResult{RawEventID: raw.ID, ReturnID: record.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithRawEventID(ctx, result.RawEventID.String()), "client return registered")
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
