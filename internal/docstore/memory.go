package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Documents are normalized through
// JSON on the way in and copied on the way out, so callers see the same value
// shapes as with the Postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]interface{}
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]map[string]interface{}),
		now:  time.Now,
	}
}

// SetClock replaces the clock used for ServerTimestamp fields.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc)
}

func (s *MemoryStore) Where(ctx context.Context, collection, field string, value interface{}) ([]Document, error) {
	want, err := normalize(value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Document
	for _, id := range ids {
		doc := s.docs[collection][id]
		got, ok := doc[field]
		if !ok || !reflect.DeepEqual(got, want) {
			continue
		}
		data, err := copyDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Data: data})
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, timestamps := splitTimestamps(data)
	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, f := range timestamps {
		body[f] = now
	}

	doc, err := copyDoc(body)
	if err != nil {
		return err
	}
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]interface{})
	}
	s.docs[collection][id] = doc
	return nil
}

func (s *MemoryStore) UpdatePath(ctx context.Context, collection, id string, path []string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}
	return setPath(doc, path, v)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func copyDoc(doc map[string]interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

func normalize(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
