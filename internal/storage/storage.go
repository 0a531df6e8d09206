// Package storage defines the generic repository abstraction shared by every
// artifact service and the document backends it runs on.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// TargetModelType names a persisted model. The value doubles as the
// collection (Firestore, Mongo) or partition (Postgres) name.
type TargetModelType string

const (
	ModelProjects      TargetModelType = "projects"
	ModelBrandings     TargetModelType = "brandings"
	ModelBusinessPlans TargetModelType = "business_plans"
	ModelDiagrams      TargetModelType = "diagrams"
	ModelLandings      TargetModelType = "landings"
	ModelDeployments   TargetModelType = "deployments"
	ModelArchetypes    TargetModelType = "archetypes"
	ModelUsers         TargetModelType = "users"
)

// AllModels lists every model type, in the order migrations copy them.
func AllModels() []TargetModelType {
	return []TargetModelType{
		ModelUsers,
		ModelProjects,
		ModelBrandings,
		ModelBusinessPlans,
		ModelDiagrams,
		ModelLandings,
		ModelArchetypes,
		ModelDeployments,
	}
}

// Collection returns the collection name for the model.
func (m TargetModelType) Collection() string {
	return string(m)
}

// Valid reports whether m is a known model type.
func (m TargetModelType) Valid() bool {
	for _, known := range AllModels() {
		if m == known {
			return true
		}
	}
	return false
}

// Document is the schemaless form records take inside a backend.
type Document = map[string]any

// Filter restricts List to documents whose top-level fields equal the given values.
type Filter map[string]any

// Backend is a document store. Implementations live in the subpackages of
// storage and are selected at startup by bootstrap.OpenStorage.
type Backend interface {
	// Name identifies the driver ("memory", "firestore", ...).
	Name() string
	Insert(ctx context.Context, model TargetModelType, id string, doc Document) error
	List(ctx context.Context, model TargetModelType, filter Filter) ([]Document, error)
	Get(ctx context.Context, model TargetModelType, id string) (Document, error)
	Replace(ctx context.Context, model TargetModelType, id string, doc Document) error
	Remove(ctx context.Context, model TargetModelType, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Base carries the identity and timestamps every record has.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta gives the repository access to the embedded Base.
func (b *Base) Meta() *Base { return b }
