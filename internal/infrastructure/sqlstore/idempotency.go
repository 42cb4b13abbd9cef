package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/idempotency"
)

// KeyRepository implements idempotency.KeyRepository on the idempotency_keys table
type KeyRepository struct {
	store *Store
}

var _ idempotency.KeyRepository = (*KeyRepository)(nil)

const keyColumns = `id, idem_key, service_id, request_path, request_method, request_fingerprint, locked_at, response_code, response_body, response_headers, created_at, completed_at, expires_at`

func scanKey(row scanner) (*idempotency.Key, error) {
	var k idempotency.Key
	var locked, completed sql.NullInt64
	var created, expires int64
	var body, headers string
	if err := row.Scan(&k.ID, &k.Key, &k.ServiceID, &k.RequestPath, &k.RequestMethod, &k.RequestFingerprint,
		&locked, &k.ResponseCode, &body, &headers, &created, &completed, &expires); err != nil {
		return nil, err
	}
	k.LockedAt = fromNullNanos(locked)
	k.CompletedAt = fromNullNanos(completed)
	k.CreatedAt = fromNanos(created)
	k.ExpiresAt = fromNanos(expires)
	if body != "" {
		k.ResponseBody = []byte(body)
	}
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &k.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("decode response headers: %w", err)
		}
	}
	return &k, nil
}

// AcquireLock inserts key unless (serviceId, key) is already stored. A
// unique violation means another request got there first.
func (r *KeyRepository) AcquireLock(ctx context.Context, key *idempotency.Key) (*idempotency.Key, bool, error) {
	_, err := r.store.exec(ctx, "idempotency_keys", "insert",
		`INSERT INTO idempotency_keys (id, idem_key, service_id, request_path, request_method, request_fingerprint, locked_at, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.Key, key.ServiceID, key.RequestPath, key.RequestMethod, key.RequestFingerprint,
		nullNanos(key.LockedAt), nanos(key.CreatedAt), nanos(key.ExpiresAt))
	if err == nil {
		stored := *key
		return &stored, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("failed to acquire idempotency key: %w", err)
	}

	existing, err := scanKey(r.store.queryRow(ctx, "idempotency_keys",
		`SELECT `+keyColumns+` FROM idempotency_keys WHERE service_id = ? AND idem_key = ?`, key.ServiceID, key.Key))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

// TakeOver re-locks an unfinished key whose lock is released or older than staleBefore
func (r *KeyRepository) TakeOver(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
	n, err := r.store.exec(ctx, "idempotency_keys", "update",
		`UPDATE idempotency_keys SET locked_at = ? WHERE id = ? AND completed_at IS NULL AND (locked_at IS NULL OR locked_at < ?)`,
		nanos(now), id, nanos(staleBefore))
	if err != nil {
		return false, fmt.Errorf("failed to take over idempotency key: %w", err)
	}
	return n == 1, nil
}

func (r *KeyRepository) ReleaseLock(ctx context.Context, id string) error {
	n, err := r.store.exec(ctx, "idempotency_keys", "update", `UPDATE idempotency_keys SET locked_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	if n == 0 {
		return idempotency.ErrNotFound
	}
	return nil
}

func (r *KeyRepository) StoreResponse(ctx context.Context, id string, code int, body []byte, headers map[string]string) error {
	encoded := ""
	if len(headers) > 0 {
		b, err := json.Marshal(headers)
		if err != nil {
			return err
		}
		encoded = string(b)
	}
	n, err := r.store.exec(ctx, "idempotency_keys", "update",
		`UPDATE idempotency_keys SET response_code = ?, response_body = ?, response_headers = ?, completed_at = ?, locked_at = NULL WHERE id = ?`,
		code, string(body), encoded, nanos(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	if n == 0 {
		return idempotency.ErrNotFound
	}
	return nil
}

func (r *KeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.store.exec(ctx, "idempotency_keys", "delete", `DELETE FROM idempotency_keys WHERE expires_at < ?`, nanos(before))
	if err != nil {
		return 0, fmt.Errorf("failed to clean idempotency keys: %w", err)
	}
	return n, nil
}

// Get returns the stored key, or nil when absent
func (r *KeyRepository) Get(ctx context.Context, key, serviceID string) (*idempotency.Key, error) {
	k, err := scanKey(r.store.queryRow(ctx, "idempotency_keys",
		`SELECT `+keyColumns+` FROM idempotency_keys WHERE service_id = ? AND idem_key = ?`, serviceID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return k, err
}
