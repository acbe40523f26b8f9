// Package docstore is a minimal document-collection store: documents are
// flat field maps addressed by collection name and a store-assigned key.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Document is a stored field map and its key.
type Document struct {
	Key    string
	Fields map[string]any
}

// Store is implemented by every backend.
//
// List returns documents in the backend's natural order, which callers must
// not rely on. Update merges the given fields into the stored document.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, key string) (Document, error)
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Update(ctx context.Context, collection, key string, fields map[string]any) error
	Delete(ctx context.Context, collection, key string) error
	Close() error
}

func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
