// Package firestoredb stores each model type in its own Firestore collection.
package firestoredb

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

type Backend struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Name() string { return "firestore" }

func (b *Backend) Insert(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	_, err := b.client.Collection(model.Collection()).Doc(id).Create(ctx, doc)
	return translate(err)
}

func (b *Backend) List(ctx context.Context, model storage.TargetModelType, filter storage.Filter) ([]storage.Document, error) {
	q := b.client.Collection(model.Collection()).Query
	for field, value := range filter {
		q = q.Where(field, "==", value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]storage.Document, 0, 16)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, withID(snap))
	}
	return out, nil
}

func (b *Backend) Get(ctx context.Context, model storage.TargetModelType, id string) (storage.Document, error) {
	snap, err := b.client.Collection(model.Collection()).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return withID(snap), nil
}

func (b *Backend) Replace(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	ref := b.client.Collection(model.Collection()).Doc(id)
	return b.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return translate(err)
		}
		return tx.Set(ref, doc)
	})
}

func (b *Backend) Remove(ctx context.Context, model storage.TargetModelType, id string) error {
	ref := b.client.Collection(model.Collection()).Doc(id)
	_, err := ref.Delete(ctx, firestore.Exists)
	return translate(err)
}

// Ping reads a document that normally does not exist; NotFound proves the
// round trip works.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.client.Collection("_health").Doc("ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (b *Backend) Close() error {
	return b.client.Close()
}

// translate maps Firestore status codes onto the storage sentinels.
func translate(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.AlreadyExists:
		return storage.ErrAlreadyExists
	default:
		return err
	}
}

func withID(snap *firestore.DocumentSnapshot) storage.Document {
	doc := snap.Data()
	if doc == nil {
		doc = storage.Document{}
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = snap.Ref.ID
	}
	return doc
}
