package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// MaturationJob advances each lot's maturity state by age and records the
// daily snapshot used by the maturation history views.
type MaturationJob struct {
	lots     lots.Repository
	logg     *logger.Logger
	interval time.Duration
}

// NewMaturationJob builds the daily maturation job.
func NewMaturationJob(lotsRepo lots.Repository, logg *logger.Logger, interval time.Duration) (*MaturationJob, error) {
	if lotsRepo == nil {
		return nil, fmt.Errorf("lots repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &MaturationJob{lots: lotsRepo, logg: logg, interval: interval}, nil
}

func (j *MaturationJob) Name() string { return "update-maturation" }

func (j *MaturationJob) Interval() time.Duration { return j.interval }

func (j *MaturationJob) Run(ctx context.Context) error {
	all, err := j.lots.ListAll(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)
	transitions := 0

	var errs error
	for _, lot := range all {
		state := lots.ComputeMaturityState(lot.EntryDate, now)
		if state != lot.MaturityState {
			if err := j.lots.Update(ctx, lot.ID, map[string]any{"maturity_state": state}); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("lot %s: %w", lot.ID, err))
				continue
			}
			transitions++
		}
		if err := j.lots.UpsertSnapshot(ctx, &models.MaturationDailySnapshot{
			LotID:        lot.ID,
			SnapshotDate: today,
			State:        state,
			Boxes:        lot.Boxes,
			Kg:           lot.Kg,
		}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("snapshot lot %s: %w", lot.ID, err))
		}
	}

	j.logg.Info(ctx, fmt.Sprintf("maturation pass: %d lots, %d transitions", len(all), transitions))
	return errs
}
