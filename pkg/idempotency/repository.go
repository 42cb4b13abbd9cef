package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency keys. Implementations must make
// AcquireLock atomic on (serviceId, key).
type KeyRepository interface {
	// AcquireLock inserts key locked, or returns the existing record for the
	// same (serviceId, key). The bool is true when key was inserted.
	AcquireLock(ctx context.Context, key *Key) (*Key, bool, error)

	// TakeOver re-locks an existing, unfinished key whose lock is older than
	// staleBefore or was released. It returns false when another request won.
	TakeOver(ctx context.Context, id string, staleBefore, now time.Time) (bool, error)

	// ReleaseLock unlocks a key without storing a response so it can be retried
	ReleaseLock(ctx context.Context, id string) error

	// StoreResponse completes a key with the response to replay
	StoreResponse(ctx context.Context, id string, code int, body []byte, headers map[string]string) error

	// Clean deletes keys that expired before the given time
	Clean(ctx context.Context, before time.Time) (int64, error)
}
