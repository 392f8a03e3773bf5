package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bomjesus/armazem-backend/internal/alerts"
	"github.com/bomjesus/armazem-backend/pkg/logger"
)

// RunAlertsJob evaluates all enabled alert rules.
type RunAlertsJob struct {
	alerts   alerts.Service
	logg     *logger.Logger
	interval time.Duration
}

// NewRunAlertsJob builds the alert sweep job.
func NewRunAlertsJob(alertsSvc alerts.Service, logg *logger.Logger, interval time.Duration) (*RunAlertsJob, error) {
	if alertsSvc == nil {
		return nil, fmt.Errorf("alerts service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RunAlertsJob{alerts: alertsSvc, logg: logg, interval: interval}, nil
}

func (j *RunAlertsJob) Name() string { return "run-alerts" }

func (j *RunAlertsJob) Interval() time.Duration { return j.interval }

func (j *RunAlertsJob) Run(ctx context.Context) error {
	result, err := j.alerts.RunAlerts(ctx)
	if result != nil {
		j.logg.Info(ctx, fmt.Sprintf("alert sweep: %d fired, %d skipped", result.Fired, result.Skipped))
	}
	return err
}
