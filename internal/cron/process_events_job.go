package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/projection"
	"github.com/bomjesus/armazem-backend/pkg/enums"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// ProcessEventsJob drains the pending RAW event queue through the projection
// engine.
type ProcessEventsJob struct {
	projector projection.Service
	events    events.Repository
	logg      *logger.Logger
	batchSize int
	interval  time.Duration
}

// NewProcessEventsJob builds the queue-draining job.
func NewProcessEventsJob(projector projection.Service, eventsRepo events.Repository, logg *logger.Logger, batchSize int, interval time.Duration) (*ProcessEventsJob, error) {
	if projector == nil {
		return nil, fmt.Errorf("projection service required")
	}
	if eventsRepo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ProcessEventsJob{
		projector: projector,
		events:    eventsRepo,
		logg:      logg,
		batchSize: batchSize,
		interval:  interval,
	}, nil
}

func (j *ProcessEventsJob) Name() string { return "process-raw-events" }

func (j *ProcessEventsJob) Interval() time.Duration { return j.interval }

func (j *ProcessEventsJob) Run(ctx context.Context) error {
	pending, err := j.events.CountByProcessingStatus(ctx, enums.ProcessingStatusPending)
	if err != nil {
		return err
	}
	if pending == 0 {
		return nil
	}

	result, err := j.projector.ProcessPending(ctx, j.batchSize)
	if err != nil {
		return err
	}
	j.logg.Info(ctx, fmt.Sprintf("projected %d of %d pending events", result.ProcessedCount, result.TotalPending))
	return nil
}
