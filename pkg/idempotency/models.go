package idempotency

import "time"

// Key is a stored Idempotency-Key with the response it produced
type Key struct {
	ID                 string            `bson:"_id" json:"id"`
	Key                string            `bson:"key" json:"key"`
	ServiceID          string            `bson:"serviceId" json:"serviceId"`
	RequestPath        string            `bson:"requestPath" json:"requestPath"`
	RequestMethod      string            `bson:"requestMethod" json:"requestMethod"`
	RequestFingerprint string            `bson:"requestFingerprint" json:"requestFingerprint"`
	LockedAt           *time.Time        `bson:"lockedAt,omitempty" json:"lockedAt,omitempty"`
	ResponseCode       int               `bson:"responseCode,omitempty" json:"responseCode,omitempty"`
	ResponseBody       []byte            `bson:"responseBody,omitempty" json:"responseBody,omitempty"`
	ResponseHeaders    map[string]string `bson:"responseHeaders,omitempty" json:"responseHeaders,omitempty"`
	CreatedAt          time.Time         `bson:"createdAt" json:"createdAt"`
	CompletedAt        *time.Time        `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ExpiresAt          time.Time         `bson:"expiresAt" json:"expiresAt"`
}

// IsCompleted reports whether a response has been stored
func (k *Key) IsCompleted() bool {
	return k.CompletedAt != nil
}

// IsLocked reports whether a request holding this key is still running
func (k *Key) IsLocked() bool {
	return k.LockedAt != nil && k.CompletedAt == nil
}
