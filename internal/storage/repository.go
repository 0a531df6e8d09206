package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Repository is the CRUD surface each service works against.
type Repository[T any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

type entity[T any] interface {
	*T
	Meta() *Base
}

// DocumentRepository implements Repository on top of any Backend by
// converting records through their JSON representation.
type DocumentRepository[T any, PT entity[T]] struct {
	backend Backend
	model   TargetModelType
	now     func() time.Time
}

// NewRepository returns a typed repository for model. T must embed Base.
func NewRepository[T any, PT entity[T]](backend Backend, model TargetModelType) *DocumentRepository[T, PT] {
	return &DocumentRepository[T, PT]{
		backend: backend,
		model:   model,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Model returns the model type this repository persists.
func (r *DocumentRepository[T, PT]) Model() TargetModelType {
	return r.model
}

// Create stores item, assigning an id when empty and stamping both timestamps.
func (r *DocumentRepository[T, PT]) Create(ctx context.Context, item *T) (*T, error) {
	meta := PT(item).Meta()
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	now := r.now()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	doc, err := ToDocument(item)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.model, err)
	}
	if err := r.backend.Insert(ctx, r.model, meta.ID, doc); err != nil {
		return nil, fmt.Errorf("insert %s %s: %w", r.model, meta.ID, err)
	}
	return item, nil
}

// FindAll returns records matching filter, oldest first.
func (r *DocumentRepository[T, PT]) FindAll(ctx context.Context, filter Filter) ([]T, error) {
	docs, err := r.backend.List(ctx, r.model, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.model, err)
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := FromDocument(doc, &item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.model, err)
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return PT(&out[i]).Meta().CreatedAt.Before(PT(&out[j]).Meta().CreatedAt)
	})
	return out, nil
}

// FindByID returns ErrNotFound when no record has id.
func (r *DocumentRepository[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	doc, err := r.backend.Get(ctx, r.model, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", r.model, id, err)
	}
	var item T
	if err := FromDocument(doc, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.model, err)
	}
	return &item, nil
}

// Update replaces the stored record. createdAt is kept from the stored copy.
func (r *DocumentRepository[T, PT]) Update(ctx context.Context, id string, item *T) (*T, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	meta := PT(item).Meta()
	meta.ID = id
	meta.CreatedAt = PT(existing).Meta().CreatedAt
	meta.UpdatedAt = r.now()

	doc, err := ToDocument(item)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.model, err)
	}
	if err := r.backend.Replace(ctx, r.model, id, doc); err != nil {
		return nil, fmt.Errorf("replace %s %s: %w", r.model, id, err)
	}
	return item, nil
}

// Delete returns ErrNotFound when no record has id.
func (r *DocumentRepository[T, PT]) Delete(ctx context.Context, id string) error {
	if err := r.backend.Remove(ctx, r.model, id); err != nil {
		return fmt.Errorf("remove %s %s: %w", r.model, id, err)
	}
	return nil
}

// Upsert updates the record with item's id, creating it when missing.
func Upsert[T any, PT entity[T]](ctx context.Context, repo Repository[T], item PT) (*T, error) {
	id := item.Meta().ID
	if id != "" {
		if _, err := repo.FindByID(ctx, id); err == nil {
			return repo.Update(ctx, id, item)
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return repo.Create(ctx, item)
}

// DeleteIfExists removes id from repo. A missing record counts as removed.
func DeleteIfExists[T any](ctx context.Context, repo Repository[T], id string) error {
	if err := repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// DeleteWhere removes every record matching filter and returns the count.
func DeleteWhere[T any, PT entity[T]](ctx context.Context, repo Repository[T], filter Filter) (int, error) {
	items, err := repo.FindAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := range items {
		if err := DeleteIfExists(ctx, repo, PT(&items[i]).Meta().ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ToDocument converts a record into its schemaless form.
func ToDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument decodes a schemaless document into out.
func FromDocument(doc Document, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
