package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/enums"
)

// ListIssuesFilter narrows the review queue listing.
type ListIssuesFilter struct {
	Resolved  *bool
	Severity  *enums.AlertSeverity
	IssueCode string
}

// Repository manages persistence for validation issues and review actions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIssue(ctx context.Context, issue *models.ValidationIssue) error
	FindIssueByID(ctx context.Context, id uuid.UUID) (*models.ValidationIssue, error)
	ListIssues(ctx context.Context, filter ListIssuesFilter, offset, limit int) ([]models.ValidationIssue, int64, error)
	UpdateIssue(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateAction(ctx context.Context, action *models.ReviewAction) error
	ListActions(ctx context.Context, issueID uuid.UUID) ([]models.ReviewAction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reviews repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIssue(ctx context.Context, issue *models.ValidationIssue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *repository) FindIssueByID(ctx context.Context, id uuid.UUID) (*models.ValidationIssue, error) {
	var issue models.ValidationIssue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *repository) ListIssues(ctx context.Context, filter ListIssuesFilter, offset, limit int) ([]models.ValidationIssue, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ValidationIssue{})

	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.IssueCode != "" {
		query = query.Where("code = ?", filter.IssueCode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var issues []models.ValidationIssue
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&issues).Error; err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

func (r *repository) UpdateIssue(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ValidationIssue{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateAction(ctx context.Context, action *models.ReviewAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) ListActions(ctx context.Context, issueID uuid.UUID) ([]models.ReviewAction, error) {
	var actions []models.ReviewAction
	if err := r.db.WithContext(ctx).
		Where("validation_issue_id = ?", issueID).
		Order("performed_at ASC").
		Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}
