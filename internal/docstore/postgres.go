package docstore

import (
	"context"
	"errors"
	"fmt"

	"formsync/internal/db"

	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps documents in the jsonb documents table
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	d, err := s.pool.Queries.GetDocument(ctx, collection, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return d.Data, nil
}

func (s *PostgresStore) Where(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	rows, err := s.pool.Queries.FindDocuments(ctx, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s where %s: %w", collection, field, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{ID: r.ID, Data: r.Data})
	}
	return docs, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	body, timestamps := splitTimestamps(data)
	if err := s.pool.Queries.PutDocument(ctx, collection, id, body, timestamps); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) UpdatePath(ctx context.Context, collection, id string, path []string, value interface{}) error {
	err := s.pool.Queries.UpdateDocument(ctx, collection, id, func(data map[string]interface{}) error {
		return setPath(data, path, value)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
