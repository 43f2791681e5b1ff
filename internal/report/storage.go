// Package report publishes finished run results to an archive backend.
// The archive holds one directory per run: the full metric table as CSV
// and a JSON summary of the scalar statistics.
package report

import "context"

// Storage is the archive backend, local filesystem or S3-compatible.
type Storage interface {
	// Put stores an object at the given path.
	Put(ctx context.Context, path string, data []byte) error

	// Get retrieves the object at the given path.
	Get(ctx context.Context, path string) ([]byte, error)

	// List returns all object paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
