package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/outbox"
)

// DecayInput configures one inactivity sweep. Zero values fall back to the
// service defaults.
type DecayInput struct {
	WindowHours int
	Percent     int64
	DryRun      bool
}

// DecayOutcome says what happened to one customer.
type DecayOutcome string

const (
	DecayDeducted       DecayOutcome = "deducted"
	DecaySkippedActive  DecayOutcome = "skipped_active"
	DecaySkippedExpired DecayOutcome = "skipped_already_expired"
	DecaySkippedZero    DecayOutcome = "skipped_zero"
	DecayFailed         DecayOutcome = "failed"
)

// DecayEntry is one customer's line in the report.
type DecayEntry struct {
	CustomerID uuid.UUID    `json:"customer_id"`
	Before     int64        `json:"before"`
	Deduction  int64        `json:"deduction"`
	After      int64        `json:"after"`
	Outcome    DecayOutcome `json:"outcome"`
}

// DecayReport summarizes a sweep.
type DecayReport struct {
	WindowHours    int          `json:"window_hours"`
	Percent        int64        `json:"percent"`
	DryRun         bool         `json:"dry_run"`
	Cutoff         time.Time    `json:"cutoff"`
	Scanned        int          `json:"scanned"`
	Deducted       int          `json:"deducted"`
	Skipped        int          `json:"skipped"`
	Failed         int          `json:"failed"`
	PointsDeducted int64        `json:"points_deducted"`
	Entries        []DecayEntry `json:"entries"`
}

// DecayDeduction is floor(points * percent / 100).
func DecayDeduction(points, percent int64) int64 {
	if points <= 0 || percent <= 0 {
		return 0
	}
	return points * percent / 100
}

func (s *service) ApplyInactivityDeductions(ctx context.Context, input DecayInput) (*DecayReport, error) {
	window := input.WindowHours
	if window <= 0 {
		window = s.decayWindowHours
	}
	percent := input.Percent
	if percent <= 0 {
		percent = s.decayPercent
	}
	cutoff := s.now().UTC().Add(-time.Duration(window) * time.Hour)

	report := &DecayReport{
		WindowHours: window,
		Percent:     percent,
		DryRun:      input.DryRun,
		Cutoff:      cutoff,
	}

	customers, err := s.repo.ListCustomersWithPoints(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers with points")
	}

	description := fmt.Sprintf("Inactivity deduction: %d%% after %dh without activity", percent, window)
	var errs error
	for _, customer := range customers {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		report.Scanned++
		entry, err := s.decayCustomer(ctx, customer.ID, cutoff, percent, description, input.DryRun)
		if err != nil {
			entry = DecayEntry{CustomerID: customer.ID, Before: customer.LoyaltyPoints, After: customer.LoyaltyPoints, Outcome: DecayFailed}
			errs = multierr.Append(errs, fmt.Errorf("customer %s: %w", customer.ID, err))
		}
		switch entry.Outcome {
		case DecayDeducted:
			report.Deducted++
			report.PointsDeducted += entry.Deduction
		case DecayFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		report.Entries = append(report.Entries, entry)
	}

	if s.metrics != nil && !input.DryRun {
		s.metrics.DecayApplied(report.Deducted, report.PointsDeducted)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"window_hours":    window,
		"dry_run":         input.DryRun,
		"scanned":         report.Scanned,
		"deducted":        report.Deducted,
		"skipped":         report.Skipped,
		"failed":          report.Failed,
		"points_deducted": report.PointsDeducted,
	})
	if errs != nil {
		s.logg.Error(logCtx, "loyalty decay finished with failures", errs)
	} else {
		s.logg.Info(logCtx, "loyalty decay finished")
	}
	return report, errs
}

// decayCustomer evaluates and applies the deduction for one customer inside
// its own transaction so one failure never blocks the rest of the sweep.
func (s *service) decayCustomer(ctx context.Context, customerID uuid.UUID, cutoff time.Time, percent int64, description string, dryRun bool) (DecayEntry, error) {
	var entry DecayEntry
	evaluate := func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var (
			customer *models.User
			err      error
		)
		if dryRun {
			customer, err = repo.FindCustomer(ctx, customerID)
		} else {
			customer, err = repo.LockCustomer(ctx, customerID)
		}
		if err != nil {
			return err
		}
		entry = DecayEntry{CustomerID: customerID, Before: customer.LoyaltyPoints, After: customer.LoyaltyPoints}

		earned, err := repo.HasTransactionSince(ctx, customerID, enums.LoyaltyEarned, cutoff)
		if err != nil {
			return err
		}
		ordered := false
		if !earned {
			if ordered, err = repo.HasCompletedOrderSince(ctx, customerID, cutoff); err != nil {
				return err
			}
		}
		if earned || ordered {
			entry.Outcome = DecaySkippedActive
			return nil
		}

		expired, err := repo.HasTransactionSince(ctx, customerID, enums.LoyaltyExpired, cutoff)
		if err != nil {
			return err
		}
		if expired {
			entry.Outcome = DecaySkippedExpired
			return nil
		}

		deduction := DecayDeduction(customer.LoyaltyPoints, percent)
		if deduction > customer.LoyaltyPoints {
			deduction = customer.LoyaltyPoints
		}
		if deduction <= 0 {
			entry.Outcome = DecaySkippedZero
			return nil
		}
		entry.Deduction = deduction
		entry.After = customer.LoyaltyPoints - deduction
		entry.Outcome = DecayDeducted
		if dryRun {
			return nil
		}

		_, err = s.record(ctx, tx, customer, posting{
			txType:      enums.LoyaltyExpired,
			points:      -deduction,
			description: description,
			actor:       outbox.SystemActor("loyalty-decay"),
		})
		return err
	}

	return entry, s.tx.WithTx(ctx, evaluate)
}
