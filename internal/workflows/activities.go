package workflows

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/raveagil-byte/steritrack-app-sub000/internal/application"
	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
)

// OverdueSweeper finds overdue loans and alerts staff
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) ([]application.UnitOverdueDTO, error)
}

// PackExpirer marks sterile packs past their shelf life as expired
type PackExpirer interface {
	ExpirePacks(ctx context.Context) ([]application.PackDTO, error)
}

// Activities runs the housekeeping steps against the ledger
type Activities struct {
	overdue OverdueSweeper
	packs   PackExpirer
	clock   func() time.Time
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewActivities creates the housekeeping activities
func NewActivities(overdue OverdueSweeper, packs PackExpirer, m *metrics.Metrics, logger *logging.Logger) *Activities {
	return &Activities{
		overdue: overdue,
		packs:   packs,
		clock:   func() time.Time { return time.Now().UTC() },
		metrics: m,
		logger:  logger.WithComponent("housekeeping-activities"),
	}
}

// SweepOverdue runs one overdue sweep
func (a *Activities) SweepOverdue(ctx context.Context) (*OverdueSweepResult, error) {
	start := time.Now()
	units, err := a.overdue.SweepOverdue(ctx)
	a.metrics.RecordActivityCompleted(ActivityNames.SweepOverdue, err == nil, time.Since(start))
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).Error("Overdue sweep failed")
		return nil, activityError(err)
	}

	result := &OverdueSweepResult{CheckedAt: a.clock(), Units: len(units)}
	for _, u := range units {
		result.OverdueCount += u.OverdueCount
		result.UnitIDs = append(result.UnitIDs, u.UnitID)
	}
	return result, nil
}

// ExpirePacks runs one pack expiry pass
func (a *Activities) ExpirePacks(ctx context.Context) (*PackExpiryResult, error) {
	start := time.Now()
	packs, err := a.packs.ExpirePacks(ctx)
	a.metrics.RecordActivityCompleted(ActivityNames.ExpirePacks, err == nil, time.Since(start))
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).Error("Pack expiry failed")
		return nil, activityError(err)
	}

	result := &PackExpiryResult{CheckedAt: a.clock(), Expired: len(packs)}
	for _, p := range packs {
		result.PackIDs = append(result.PackIDs, p.ID)
	}
	return result, nil
}

// activityError carries the AppError code as the Temporal error type so the
// retry policy can tell permanent failures apart
func activityError(err error) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return err
	}
	return temporal.NewApplicationErrorWithCause(appErr.Message, appErr.Code, err)
}
