package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/pkg/logger"
)

// LoyaltyDecayJobParams configure the inactivity deduction job.
type LoyaltyDecayJobParams struct {
	Logger      *logger.Logger
	Loyalty     decayRunner
	WindowHours int
	Percent     int64
}

type decayRunner interface {
	ApplyInactivityDeductions(ctx context.Context, input loyalty.DecayInput) (*loyalty.DecayReport, error)
}

// NewLoyaltyDecayJob builds the job that trims points of inactive customers.
func NewLoyaltyDecayJob(params LoyaltyDecayJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &loyaltyDecayJob{
		logg:    params.Logger,
		loyalty: params.Loyalty,
		input: loyalty.DecayInput{
			WindowHours: params.WindowHours,
			Percent:     params.Percent,
		},
	}, nil
}

type loyaltyDecayJob struct {
	logg    *logger.Logger
	loyalty decayRunner
	input   loyalty.DecayInput
}

func (j *loyaltyDecayJob) Name() string { return "loyalty-decay" }

// Run applies one sweep. Per-customer failures fail the job after the rest
// of the customers have been processed.
func (j *loyaltyDecayJob) Run(ctx context.Context) error {
	report, err := j.loyalty.ApplyInactivityDeductions(ctx, j.input)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":          report.Cutoff,
			"scanned":         report.Scanned,
			"deducted":        report.Deducted,
			"failed":          report.Failed,
			"points_deducted": report.PointsDeducted,
		})
		j.logg.Info(logCtx, "loyalty decay sweep done")
	}
	if err != nil {
		return fmt.Errorf("loyalty decay: %w", err)
	}
	return nil
}
