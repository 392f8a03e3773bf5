package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// readModelViews are the CLEAN materialized views the dashboards read from.
var readModelViews = []string{
	"clean.estoque_atual",
	"clean.maturacao_atual",
	"clean.devolucoes_clientes",
	"clean.perdas_mensal",
}

// RefreshViewsJob rebuilds the CLEAN materialized views.
type RefreshViewsJob struct {
	db       *gorm.DB
	logg     *logger.Logger
	interval time.Duration
}

// NewRefreshViewsJob builds the read-model refresh job.
func NewRefreshViewsJob(db *gorm.DB, logg *logger.Logger, interval time.Duration) (*RefreshViewsJob, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RefreshViewsJob{db: db, logg: logg, interval: interval}, nil
}

func (j *RefreshViewsJob) Name() string { return "refresh-read-models" }

func (j *RefreshViewsJob) Interval() time.Duration { return j.interval }

func (j *RefreshViewsJob) Run(ctx context.Context) error {
	var errs error
	for _, view := range readModelViews {
		if err := j.db.WithContext(ctx).Exec("REFRESH MATERIALIZED VIEW " + view).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refreshing %s: %w", view, err))
		}
	}
	return errs
}
