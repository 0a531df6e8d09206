// Package mongodb stores each model type in its own MongoDB collection, with
// the record id as _id.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

type Backend struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and verifies the primary is reachable.
func Open(ctx context.Context, uri, database string) (*Backend, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return New(client, database), nil
}

// New wraps a connected client.
func New(client *mongo.Client, database string) *Backend {
	return &Backend{client: client, db: client.Database(database)}
}

func (b *Backend) Name() string { return "mongo" }

func (b *Backend) coll(model storage.TargetModelType) *mongo.Collection {
	return b.db.Collection(model.Collection())
}

func (b *Backend) Insert(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	_, err := b.coll(model).InsertOne(ctx, toBSON(id, doc))
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrAlreadyExists
	}
	return err
}

func (b *Backend) List(ctx context.Context, model storage.TargetModelType, filter storage.Filter) ([]storage.Document, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	cur, err := b.coll(model).Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	out := make([]storage.Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, fromBSON(m))
	}
	return out, nil
}

func (b *Backend) Get(ctx context.Context, model storage.TargetModelType, id string) (storage.Document, error) {
	var m bson.M
	err := b.coll(model).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(m), nil
}

func (b *Backend) Replace(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	res, err := b.coll(model).ReplaceOne(ctx, bson.M{"_id": id}, toBSON(id, doc))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (b *Backend) Remove(ctx context.Context, model storage.TargetModelType, id string) error {
	res, err := b.coll(model).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *Backend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

func toBSON(id string, doc storage.Document) bson.M {
	m := bson.M{"_id": id}
	for k, v := range doc {
		m[k] = v
	}
	return m
}

func fromBSON(m bson.M) storage.Document {
	doc := storage.Document{}
	for k, v := range m {
		if k == "_id" {
			if _, ok := m["id"]; !ok {
				doc["id"] = v
			}
			continue
		}
		doc[k] = v
	}
	return doc
}
