package backend

import (
	"context"

	"financas/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result holds the opened store and the function that closes it.
type Result struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory opens stores based on configuration.
type Factory interface {
	Open(ctx context.Context, config Config) (*Result, error)
}

// Type names a storage backend.
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
	MongoBackend    Type = "mongo"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to open one backend.
type Config struct {
	Type Type

	SQLiteDBPath  string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	// Seed loads the demo data set from DataDirectory (or the built-in one).
	// Persistent backends are only seeded while they hold no transactions.
	Seed          bool
	DataDirectory string
}
