package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	apperrors "github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
)

// RetryPolicyType selects a retry configuration for an activity
type RetryPolicyType int

const (
	// StandardRetry for store-backed housekeeping (3 attempts, 1s-1m backoff)
	StandardRetry RetryPolicyType = iota
	// NoRetry for activities that must not run twice within one workflow run
	NoRetry
)

// AppError codes that retrying cannot fix. Activities report the code as the
// application error type, see activityError.
var nonRetryableErrorTypes = []string{
	apperrors.CodeValidationError,
	apperrors.CodeNotFound,
	apperrors.CodeInvalidState,
}

// GetRetryPolicy returns a configured retry policy based on type
func GetRetryPolicy(policyType RetryPolicyType) *temporal.RetryPolicy {
	switch policyType {
	case NoRetry:
		return &temporal.RetryPolicy{MaximumAttempts: 1}
	default:
		return &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: nonRetryableErrorTypes,
		}
	}
}

// WithActivityOptions applies the housekeeping timeout and a retry policy
func WithActivityOptions(ctx workflow.Context, timeout time.Duration, policyType RetryPolicyType) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         GetRetryPolicy(policyType),
	})
}
