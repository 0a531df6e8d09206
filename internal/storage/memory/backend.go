// Package memory is an in-process storage backend for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

type Backend struct {
	mu   sync.RWMutex
	data map[storage.TargetModelType]map[string][]byte
}

func New() *Backend {
	return &Backend{data: make(map[storage.TargetModelType]map[string][]byte)}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Insert(_ context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	coll, ok := b.data[model]
	if !ok {
		coll = make(map[string][]byte)
		b.data[model] = coll
	}
	if _, exists := coll[id]; exists {
		return storage.ErrAlreadyExists
	}
	coll[id] = raw
	return nil
}

func (b *Backend) List(_ context.Context, model storage.TargetModelType, filter storage.Filter) ([]storage.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]storage.Document, 0, len(b.data[model]))
	for _, raw := range b.data[model] {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (b *Backend) Get(_ context.Context, model storage.TargetModelType, id string) (storage.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	raw, ok := b.data[model][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return decode(raw)
}

func (b *Backend) Replace(_ context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.data[model][id]; !ok {
		return storage.ErrNotFound
	}
	b.data[model][id] = raw
	return nil
}

func (b *Backend) Remove(_ context.Context, model storage.TargetModelType, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.data[model][id]; !ok {
		return storage.ErrNotFound
	}
	delete(b.data[model], id)
	return nil
}

func (b *Backend) Ping(context.Context) error { return nil }

func (b *Backend) Close() error { return nil }

func decode(raw []byte) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// matches compares filter values through their JSON form so that an int
// filter matches the float64 a decoded document carries.
func matches(doc storage.Document, filter storage.Filter) bool {
	if len(filter) == 0 {
		return true
	}
	norm, err := storage.ToDocument(map[string]any(filter))
	if err != nil {
		return false
	}
	for k, want := range norm {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
