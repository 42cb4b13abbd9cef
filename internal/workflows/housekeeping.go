// Package workflows holds the scheduled housekeeping run by cmd/worker:
// the overdue sweep and the pack expiry pass.
package workflows

import (
	"time"

	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/temporal"
)

// ActivityNames are the registered names of the housekeeping activities
var ActivityNames = struct {
	SweepOverdue string
	ExpirePacks  string
}{
	SweepOverdue: "SweepOverdue",
	ExpirePacks:  "ExpirePacks",
}

const housekeepingTimeout = 2 * time.Minute

// Register adds the housekeeping workflows and activities to a worker
func Register(r worker.Registry, activities *Activities) {
	r.RegisterWorkflowWithOptions(OverdueSweepWorkflow, workflow.RegisterOptions{Name: temporal.WorkflowNames.OverdueSweep})
	r.RegisterWorkflowWithOptions(PackExpiryWorkflow, workflow.RegisterOptions{Name: temporal.WorkflowNames.PackExpiry})
	r.RegisterActivity(activities)
}

// OverdueSweepResult summarises one sweep
type OverdueSweepResult struct {
	CheckedAt    time.Time `json:"checkedAt"`
	Units        int       `json:"units"`
	OverdueCount int       `json:"overdueCount"`
	UnitIDs      []string  `json:"unitIds,omitempty"`
}

// PackExpiryResult summarises one expiry pass
type PackExpiryResult struct {
	CheckedAt time.Time `json:"checkedAt"`
	Expired   int       `json:"expired"`
	PackIDs   []string  `json:"packIds,omitempty"`
}

// OverdueSweepWorkflow finds loans past their return date and alerts staff.
// It runs on a cron schedule; the sweep itself is safe to repeat.
func OverdueSweepWorkflow(ctx workflow.Context) (*OverdueSweepResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = WithActivityOptions(ctx, housekeepingTimeout, StandardRetry)

	var result OverdueSweepResult
	if err := workflow.ExecuteActivity(ctx, ActivityNames.SweepOverdue).Get(ctx, &result); err != nil {
		logger.Error("Overdue sweep failed", "error", err)
		return nil, err
	}

	logger.Info("Overdue sweep completed", "units", result.Units, "overdueCount", result.OverdueCount)
	return &result, nil
}

// PackExpiryWorkflow marks sterile packs past their expiry date as EXPIRED
func PackExpiryWorkflow(ctx workflow.Context) (*PackExpiryResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = WithActivityOptions(ctx, housekeepingTimeout, StandardRetry)

	var result PackExpiryResult
	if err := workflow.ExecuteActivity(ctx, ActivityNames.ExpirePacks).Get(ctx, &result); err != nil {
		logger.Error("Pack expiry failed", "error", err)
		return nil, err
	}

	if result.Expired > 0 {
		logger.Info("Packs expired", "count", result.Expired)
	}
	return &result, nil
}
