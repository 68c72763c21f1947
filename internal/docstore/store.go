// Package docstore is the document database contract used by the submission
// pipeline: documents addressed by collection and id, equality queries on a
// top-level field, whole-document writes and partial updates by path.
package docstore

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
)

var ErrNotFound = errors.New("document not found")

// Document is a stored document and its id
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Store is implemented by every document backend
type Store interface {
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)
	Where(ctx context.Context, collection, field string, value interface{}) ([]Document, error)
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	UpdatePath(ctx context.Context, collection, id string, path []string, value interface{}) error
	Ping(ctx context.Context) error
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when it appears as a
// top-level value passed to Set.
var ServerTimestamp = serverTimestamp{}

// NewID allocates a document id.
func NewID() string {
	return ulid.Make().String()
}

// splitTimestamps returns a copy of data without ServerTimestamp values and
// the names of the fields that carried them.
func splitTimestamps(data map[string]interface{}) (map[string]interface{}, []string) {
	out := make(map[string]interface{}, len(data))
	var fields []string
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			fields = append(fields, k)
			continue
		}
		out[k] = v
	}
	return out, fields
}

// setPath writes value at path inside data, creating intermediate objects.
func setPath(data map[string]interface{}, path []string, value interface{}) error {
	if len(path) == 0 {
		return errors.New("empty update path")
	}
	cur := data
	for i, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]interface{})
		if !ok {
			if cur[key] != nil {
				return errors.New("path " + strings.Join(path[:i+1], ".") + " is not an object")
			}
			next = make(map[string]interface{})
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
	return nil
}
