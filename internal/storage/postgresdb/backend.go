// Package postgresdb stores documents as JSONB rows in a single table keyed
// by (collection, id).
package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

const schema = `
create table if not exists documents (
  collection text        not null,
  id         text        not null,
  doc        jsonb       not null,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now(),
  primary key (collection, id)
);
create index if not exists documents_doc_gin on documents using gin (doc jsonb_path_ops);
`

type Backend struct {
	db *sql.DB
}

// Open connects through the pgx database/sql driver and pings.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// EnsureSchema creates the documents table when missing.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (b *Backend) Name() string { return "postgres" }

func (b *Backend) Insert(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	const q = `
insert into documents (collection, id, doc)
values ($1, $2, $3::jsonb);
`
	_, err = b.db.ExecContext(ctx, q, model.Collection(), id, string(raw))
	if err != nil {
		// unique violation on (collection, id)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (b *Backend) List(ctx context.Context, model storage.TargetModelType, filter storage.Filter) ([]storage.Document, error) {
	containment := "{}"
	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		containment = string(raw)
	}

	const q = `
select doc::text
from documents
where collection = $1 and doc @> $2::jsonb
order by created_at;
`
	rows, err := b.db.QueryContext(ctx, q, model.Collection(), containment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]storage.Document, 0, 16)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		var doc storage.Document
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) Get(ctx context.Context, model storage.TargetModelType, id string) (storage.Document, error) {
	const q = `
select doc::text
from documents
where collection = $1 and id = $2;
`
	var text string
	err := b.db.QueryRowContext(ctx, q, model.Collection(), id).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var doc storage.Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (b *Backend) Replace(ctx context.Context, model storage.TargetModelType, id string, doc storage.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	const q = `
update documents
set doc = $3::jsonb, updated_at = now()
where collection = $1 and id = $2;
`
	result, err := b.db.ExecContext(ctx, q, model.Collection(), id, string(raw))
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (b *Backend) Remove(ctx context.Context, model storage.TargetModelType, id string) error {
	const q = `
delete from documents
where collection = $1 and id = $2;
`
	result, err := b.db.ExecContext(ctx, q, model.Collection(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
