package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by a MongoDB collection. Each key is one
// document: blob values live in the "data" field, counters in the "n"
// field (so Incr can use $inc server-side).
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"data,omitempty"`
	N    *int64 `bson:"n,omitempty"`
}

// NewMongoStore connects to the MongoDB deployment at uri and uses the
// given database and collection for storage.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo %s: %w", uri, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Get retrieves the bytes stored under key, or ErrNotFound. Counter
// documents read back as their decimal string, matching the Redis
// backend.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	if doc.Data != nil {
		return doc.Data, nil
	}
	if doc.N != nil {
		return []byte(strconv.FormatInt(*doc.N, 10)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Set stores data under key, replacing any previous document.
func (s *MongoStore) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{ID: key, Data: data},
		options.Replace().SetUpsert(true))
	return err
}

// Delete removes key, reporting whether it existed.
func (s *MongoStore) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Incr atomically adds delta to the counter under key with $inc, creating
// the document if needed.
func (s *MongoStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	var doc mongoDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"n": delta}, "$unset": bson.M{"data": ""}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	if doc.N == nil {
		return 0, fmt.Errorf("key %q holds a non-integer value", key)
	}
	return *doc.N, nil
}

// Close disconnects from the deployment.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
