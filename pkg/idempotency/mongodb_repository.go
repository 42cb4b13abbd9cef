package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const keysCollection = "idempotency_keys"

// MongoKeyRepository stores keys in the idempotency_keys collection
type MongoKeyRepository struct {
	collection *mongo.Collection
}

// NewMongoKeyRepository creates a MongoDB-backed key repository
func NewMongoKeyRepository(db *mongo.Database) *MongoKeyRepository {
	return &MongoKeyRepository{collection: db.Collection(keysCollection)}
}

// AcquireLock upserts on (serviceId, key). The candidate's _id is only written
// on insert, so comparing it with the returned document tells who created it.
func (r *MongoKeyRepository) AcquireLock(ctx context.Context, key *Key) (*Key, bool, error) {
	filter := bson.M{"serviceId": key.ServiceID, "key": key.Key}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                key.ID,
			"key":                key.Key,
			"serviceId":          key.ServiceID,
			"requestPath":        key.RequestPath,
			"requestMethod":      key.RequestMethod,
			"requestFingerprint": key.RequestFingerprint,
			"lockedAt":           key.LockedAt,
			"createdAt":          key.CreatedAt,
			"expiresAt":          key.ExpiresAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var result Key
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race on the unique index; the winner's document is there now
		err = r.collection.FindOne(ctx, filter).Decode(&result)
	}
	if err != nil {
		return nil, false, err
	}
	return &result, result.ID == key.ID, nil
}

// TakeOver re-locks an unfinished key whose lock is released or older than staleBefore
func (r *MongoKeyRepository) TakeOver(ctx context.Context, id string, staleBefore, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"completedAt": bson.M{"$exists": false},
		"$or": bson.A{
			bson.M{"lockedAt": bson.M{"$exists": false}},
			bson.M{"lockedAt": nil},
			bson.M{"lockedAt": bson.M{"$lt": staleBefore}},
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"lockedAt": now}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ReleaseLock unsets lockedAt
func (r *MongoKeyRepository) ReleaseLock(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"lockedAt": ""}})
	return err
}

// StoreResponse completes the key
func (r *MongoKeyRepository) StoreResponse(ctx context.Context, id string, code int, body []byte, headers map[string]string) error {
	update := bson.M{
		"$set": bson.M{
			"responseCode":    code,
			"responseBody":    body,
			"responseHeaders": headers,
			"completedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{"lockedAt": ""},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the key stored for (serviceID, key)
func (r *MongoKeyRepository) Get(ctx context.Context, key, serviceID string) (*Key, error) {
	var result Key
	err := r.collection.FindOne(ctx, bson.M{"serviceId": serviceID, "key": key}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Clean deletes expired keys; the TTL index normally does this first
func (r *MongoKeyRepository) Clean(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the unique (serviceId, key) index and the expiry TTL index
func (r *MongoKeyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_service_key_unique"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_expires_ttl"),
		},
	})
	return err
}
