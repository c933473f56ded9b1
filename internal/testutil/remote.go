package testutil

import (
	"cv-go/internal/logstore"
	"cv-go/internal/remote"
)

// NewTestRemote creates a new in-memory remote for testing.
func NewTestRemote() *remote.MemoryRemote {
	return remote.NewMemoryRemote()
}

// NewTestLogStore creates a new in-memory commit log store for testing.
func NewTestLogStore() *logstore.MemoryStore {
	return logstore.NewMemoryStore()
}
