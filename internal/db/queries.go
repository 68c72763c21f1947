package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

// Document represents a documents row
type Document struct {
	Collection string
	ID         string
	Data       map[string]interface{}
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (q *Queries) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var d Document
	err := q.Pool.QueryRow(ctx,
		`SELECT collection, id, data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&d.Collection, &d.ID, &d.Data, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// FindDocuments returns the documents of a collection whose top-level field
// equals value. Comparison happens on the jsonb encoding of value.
func (q *Queries) FindDocuments(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query value: %w", err)
	}

	rows, err := q.Pool.Query(ctx,
		`SELECT collection, id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND data -> $2 = $3::text::jsonb
		ORDER BY id`,
		collection, field, string(encoded),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Collection, &d.ID, &d.Data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PutDocument creates or replaces a document. Every name in timestampFields
// is set to the database server time.
func (q *Queries) PutDocument(ctx context.Context, collection, id string, data map[string]interface{}, timestampFields []string) error {
	if timestampFields == nil {
		timestampFields = []string{}
	}
	_, err := q.Pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb || (
			SELECT COALESCE(jsonb_object_agg(f, to_jsonb(NOW())), '{}'::jsonb)
			FROM unnest($4::text[]) AS f
		))
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, data, timestampFields,
	)
	return err
}

// UpdateDocument locks a document, lets mutate change its data and writes it back.
func (q *Queries) UpdateDocument(ctx context.Context, collection, id string, mutate func(data map[string]interface{}) error) error {
	return pgx.BeginFunc(ctx, q.Pool, func(tx pgx.Tx) error {
		var data map[string]interface{}
		err := tx.QueryRow(ctx,
			"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE",
			collection, id,
		).Scan(&data)
		if err != nil {
			return err
		}
		if data == nil {
			data = make(map[string]interface{})
		}

		if err := mutate(data); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			"UPDATE documents SET data = $3, updated_at = NOW() WHERE collection = $1 AND id = $2",
			collection, id, data,
		)
		return err
	})
}
