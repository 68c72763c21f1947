package service

import (
	"context"
	"errors"
	"fmt"

	"formsync/internal/docstore"
	"formsync/internal/model"
)

// FieldRegistry reads form field definitions and submission templates
type FieldRegistry struct {
	store docstore.Store
}

func NewFieldRegistry(store docstore.Store) *FieldRegistry {
	return &FieldRegistry{store: store}
}

// RequiredFieldNames returns the fields that always survive the whitelist.
func (r *FieldRegistry) RequiredFieldNames(ctx context.Context) (map[string]struct{}, error) {
	docs, err := r.store.Where(ctx, CollectionFormField, "required", true)
	if err != nil {
		return nil, fmt.Errorf("failed to load required fields: %w", err)
	}

	names := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		names[d.ID] = struct{}{}
	}
	return names, nil
}

// DefaultFieldValues returns the default value of every field flagged default.
func (r *FieldRegistry) DefaultFieldValues(ctx context.Context) (map[string]interface{}, error) {
	docs, err := r.store.Where(ctx, CollectionFormField, "default", true)
	if err != nil {
		return nil, fmt.Errorf("failed to load default fields: %w", err)
	}

	values := make(map[string]interface{}, len(docs))
	for _, d := range docs {
		var f model.FieldDef
		if err := model.Decode(d.Data, &f); err != nil {
			return nil, fmt.Errorf("field %s: %w", d.ID, err)
		}
		values[d.ID] = f.Value
	}
	return values, nil
}

// TemplateFor loads a template with its fields in position order.
func (r *FieldRegistry) TemplateFor(ctx context.Context, name string) (*model.Template, error) {
	if name == "" {
		return nil, ErrTemplateNotFound
	}

	doc, err := r.store.Get(ctx, CollectionFormTemplate, name)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", name, err)
	}

	return model.DecodeTemplate(name, doc)
}
