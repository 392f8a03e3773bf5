package reviews

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	pkgerrors "github.com/bomjesus/armazem-backend/pkg/errors"
	"github.com/bomjesus/armazem-backend/pkg/logger"
	"github.com/bomjesus/armazem-backend/pkg/pagination"
)

// TxRunner abstracts the transactional boundary for issue resolution.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IssuePage is one page of the review queue.
type IssuePage struct {
	Items      []models.ValidationIssue `json:"items"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"pageSize"`
	Total      int64                    `json:"total"`
	TotalPages int                      `json:"totalPages"`
}

// Service exposes the review queue operations.
type Service interface {
	ListIssues(ctx context.Context, filter ListIssuesFilter, page, pageSize int) (*IssuePage, error)
	ResolveIssue(ctx context.Context, id uuid.UUID, actorUserID, notes string) (*models.ValidationIssue, error)
}

// ServiceParams carries the review service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     TxRunner
	Logger *logger.Logger
}

type service struct {
	repo Repository
	tx   TxRunner
	logg *logger.Logger
}

// NewService wires the review queue service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger}, nil
}

func (s *service) ListIssues(ctx context.Context, filter ListIssuesFilter, page, pageSize int) (*IssuePage, error) {
	p := pagination.Normalize(page, pageSize)

	items, total, err := s.repo.ListIssues(ctx, filter, p.Offset(), p.Size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ValidationIssue{}
	}

	return &IssuePage{
		Items:      items,
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: p.TotalPages(total),
	}, nil
}

func (s *service) ResolveIssue(ctx context.Context, id uuid.UUID, actorUserID, notes string) (*models.ValidationIssue, error) {
	if actorUserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}

	issue, err := s.repo.FindIssueByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "validation issue not found")
	}
	if issue.Resolved {
		// Resolution is idempotent and never reverts.
		return issue, nil
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateIssue(ctx, issue.ID, map[string]any{
			"resolved":    true,
			"resolved_at": now,
			"resolved_by": actorUserID,
		}); err != nil {
			return err
		}

		action := &models.ReviewAction{
			ValidationIssueID: issue.ID,
			Action:            "RESOLVED",
			PerformedBy:       actorUserID,
		}
		if notes != "" {
			action.Notes = &notes
		}
		return repo.CreateAction(ctx, action)
	})
	if err != nil {
		return nil, err
	}

	issue.Resolved = true
	issue.ResolvedAt = &now
	issue.ResolvedBy = &actorUserID

	s.logg.Info(s.logg.WithField(ctx, "issueId", issue.ID.String()), "validation issue resolved")
	return issue, nil
}
