package cv

import (
	"context"
	"io"
)

// Remote is a blob store keyed by root-relative path, used by push and pull.
type Remote interface {
	// List returns every stored key in sorted order.
	List(ctx context.Context) ([]string, error)

	// Get writes the object stored at key to w. A missing key yields an error
	// wrapping ErrNotFound.
	Get(ctx context.Context, key string, w io.Writer) error

	// Put stores size bytes read from r at key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Delete removes key. A missing key yields an error wrapping ErrNotFound.
	Delete(ctx context.Context, key string) error
}
