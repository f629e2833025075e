// Package store publishes report artifacts to a case store so results
// are available outside the analyst's workstation. Backends: local
// filesystem, S3, and an in-memory store for tests.
package store

import "io"

// Store is a write-only artifact store. Keys are slash-separated and
// scoped by the caller (typically a run identifier prefix).
type Store interface {
	// Put stores the content read from r under key, overwriting any
	// previous object.
	Put(key string, r io.Reader) error

	// ValidateSetup verifies that the store is accessible and properly
	// configured.
	ValidateSetup() error
}
