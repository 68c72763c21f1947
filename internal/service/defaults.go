package service

import (
	"context"
	"errors"
	"fmt"

	"formsync/internal/docstore"
	"formsync/internal/model"
)

type seedDocument struct {
	collection, id string
	data           map[string]interface{}
}

// defaultDocuments mirrors migrations/00002_seed_fields.sql.
func defaultDocuments() []seedDocument {
	d := int(model.ConditionDeferToApp)
	return []seedDocument{
		{CollectionFormField, "appKey", map[string]interface{}{"required": true}},
		{CollectionFormField, "templateName", map[string]interface{}{"required": true}},
		{CollectionFormField, "urlRedirect", map[string]interface{}{"default": true, "value": "false"}},
		{CollectionGlobal, GlobalAppDocument, map[string]interface{}{
			"condition": map[string]interface{}{
				"messageGlobal":     d,
				"corsBypass":        d,
				"submitForm":        d,
				"spamFilterAkismet": d,
			},
			"message": map[string]interface{}{
				"success": "Thank you for your submission.",
				"error":   "Your submission could not be processed.",
			},
		}},
	}
}

// SeedDefaults writes the field registry and global config documents that
// are missing from store. Existing documents are left untouched.
func SeedDefaults(ctx context.Context, store docstore.Store) error {
	for _, doc := range defaultDocuments() {
		_, err := store.Get(ctx, doc.collection, doc.id)
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("failed to read %s/%s: %w", doc.collection, doc.id, err)
		}
		if err := store.Set(ctx, doc.collection, doc.id, doc.data); err != nil {
			return fmt.Errorf("failed to seed %s/%s: %w", doc.collection, doc.id, err)
		}
	}
	return nil
}
