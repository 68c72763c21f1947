package service

import (
	"context"
	"fmt"

	"formsync/internal/docstore"
	"formsync/internal/model"
)

type SubmissionStore struct {
	store docstore.Store
}

func NewSubmissionStore(store docstore.Store) *SubmissionStore {
	return &SubmissionStore{store: store}
}

// Create allocates a document id and writes the submission under it. The
// creation time is assigned by the store.
func (s *SubmissionStore) Create(ctx context.Context, sub model.Submission) (string, error) {
	id := docstore.NewID()
	if err := s.store.Set(ctx, CollectionSubmitForm, id, submissionDocument(sub)); err != nil {
		return "", fmt.Errorf("failed to store submission: %w", err)
	}
	return id, nil
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (*model.Submission, error) {
	doc, err := s.store.Get(ctx, CollectionSubmitForm, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", id, err)
	}
	return model.DecodeSubmission(id, doc)
}

func submissionDocument(sub model.Submission) map[string]interface{} {
	doc := map[string]interface{}{
		"appKey":    sub.AppKey,
		"createdAt": docstore.ServerTimestamp,
		"from":      sub.From,
		"toUids":    []string{sub.Recipient},
		"replyTo":   sub.ReplyTo,
		"template": map[string]interface{}{
			"name": sub.TemplateName,
			"data": sub.TemplateData,
		},
	}
	if sub.Spam != "" {
		doc["spam"] = sub.Spam
	}
	return doc
}
