package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"formsync/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := db.NewPool(context.Background(), databaseURL)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), "DELETE FROM documents WHERE collection LIKE 'test_%'")
	require.NoError(t, err)

	return NewPostgresStore(pool)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	id := NewID()
	require.NoError(t, s.Set(ctx, "test_submissions", id, map[string]interface{}{
		"appKey":    "key-1",
		"createdAt": ServerTimestamp,
	}))

	doc, err := s.Get(ctx, "test_submissions", id)
	require.NoError(t, err)
	assert.Equal(t, "key-1", doc["appKey"])

	created, err := time.Parse(time.RFC3339Nano, doc["createdAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), created, time.Minute)

	_, err = s.Get(ctx, "test_submissions", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_WhereAndUpdatePath(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "test_fields", "appKey", map[string]interface{}{"required": true}))
	require.NoError(t, s.Set(ctx, "test_fields", "note", map[string]interface{}{"required": false}))

	docs, err := s.Where(ctx, "test_fields", "required", true)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "appKey", docs[0].ID)

	require.NoError(t, s.Set(ctx, "test_apps", "a", map[string]interface{}{"spreadsheet": map[string]interface{}{"id": "ss"}}))
	require.NoError(t, s.UpdatePath(ctx, "test_apps", "a", []string{"spreadsheet", "sheetId", "contactDefault"}, 9))

	doc, err := s.Get(ctx, "test_apps", "a")
	require.NoError(t, err)
	sheetIDs := doc["spreadsheet"].(map[string]interface{})["sheetId"].(map[string]interface{})
	assert.Equal(t, 9.0, sheetIDs["contactDefault"])
}
