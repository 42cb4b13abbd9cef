package idempotency

import (
	"context"
	"sync"
	"time"
)

type scopedKey struct {
	service string
	key     string
}

// MemoryKeyRepository keeps keys in process memory
type MemoryKeyRepository struct {
	mu    sync.Mutex
	byKey map[scopedKey]*Key
	byID  map[string]*Key
}

// NewMemoryKeyRepository creates an empty repository
func NewMemoryKeyRepository() *MemoryKeyRepository {
	return &MemoryKeyRepository{
		byKey: map[scopedKey]*Key{},
		byID:  map[string]*Key{},
	}
}

func copyKey(k *Key) *Key {
	c := *k
	c.ResponseBody = append([]byte(nil), k.ResponseBody...)
	if k.ResponseHeaders != nil {
		c.ResponseHeaders = make(map[string]string, len(k.ResponseHeaders))
		for h, v := range k.ResponseHeaders {
			c.ResponseHeaders[h] = v
		}
	}
	return &c
}

// AcquireLock inserts key unless (serviceId, key) is already stored
func (r *MemoryKeyRepository) AcquireLock(_ context.Context, key *Key) (*Key, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sk := scopedKey{key.ServiceID, key.Key}
	if existing, ok := r.byKey[sk]; ok {
		return copyKey(existing), false, nil
	}
	stored := copyKey(key)
	r.byKey[sk] = stored
	r.byID[stored.ID] = stored
	return copyKey(stored), true, nil
}

// TakeOver re-locks an unfinished key whose lock is released or stale
func (r *MemoryKeyRepository) TakeOver(_ context.Context, id string, staleBefore, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if k.IsCompleted() || (k.LockedAt != nil && !k.LockedAt.Before(staleBefore)) {
		return false, nil
	}
	k.LockedAt = &now
	return true, nil
}

// ReleaseLock unlocks the key
func (r *MemoryKeyRepository) ReleaseLock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	k.LockedAt = nil
	return nil
}

// StoreResponse completes the key
func (r *MemoryKeyRepository) StoreResponse(_ context.Context, id string, code int, body []byte, headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.ResponseCode = code
	k.ResponseBody = append([]byte(nil), body...)
	k.ResponseHeaders = headers
	k.CompletedAt = &now
	k.LockedAt = nil
	return nil
}

// Clean drops expired keys
func (r *MemoryKeyRepository) Clean(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, k := range r.byID {
		if k.ExpiresAt.Before(before) {
			delete(r.byID, id)
			delete(r.byKey, scopedKey{k.ServiceID, k.Key})
			n++
		}
	}
	return n, nil
}
