package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"

	"github.com/idem-lexis/lexis-api/config"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/firestoredb"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
	"github.com/idem-lexis/lexis-api/internal/storage/mongodb"
	"github.com/idem-lexis/lexis-api/internal/storage/postgresdb"
)

// OpenStorage connects the backend named by driver. The firestore driver
// reuses app when given and initializes Firebase otherwise.
func OpenStorage(ctx context.Context, driver string, cfg *config.Config, app *firebase.App) (storage.Backend, error) {
	switch driver {
	case "firestore":
		if app == nil {
			var err error
			if app, err = auth.InitializeFirebase(ctx, &cfg.Firebase); err != nil {
				return nil, err
			}
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return firestoredb.New(client), nil
	case "mongo":
		return mongodb.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case "postgres":
		b, err := postgresdb.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := b.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		return b, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
