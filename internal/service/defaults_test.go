package service

import (
	"context"
	"testing"

	"formsync/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	require.NoError(t, SeedDefaults(ctx, store))

	registry := NewFieldRegistry(store)
	required, err := registry.RequiredFieldNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"appKey": {}, "templateName": {}}, required)

	defaults, err := registry.DefaultFieldValues(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"urlRedirect": "false"}, defaults)

	global, err := store.Get(ctx, CollectionGlobal, GlobalAppDocument)
	require.NoError(t, err)
	assert.Contains(t, global, "condition")
	assert.Contains(t, global, "message")
}

func TestSeedDefaults_KeepsExistingDocuments(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	custom := map[string]interface{}{
		"message": map[string]interface{}{"success": "Custom thanks", "error": "Custom error"},
	}
	require.NoError(t, store.Set(ctx, CollectionGlobal, GlobalAppDocument, custom))

	require.NoError(t, SeedDefaults(ctx, store))
	require.NoError(t, SeedDefaults(ctx, store))

	global, err := store.Get(ctx, CollectionGlobal, GlobalAppDocument)
	require.NoError(t, err)
	assert.Equal(t, custom["message"], global["message"])
	assert.NotContains(t, global, "condition")
}
