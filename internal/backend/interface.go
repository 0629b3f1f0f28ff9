package backend

import (
	"context"

	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
	"github.com/gladysonss/opensheets-app-sub000/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the store can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the ledger store, the optional event publisher and
// the hooks the server needs around them.
type BackendResult struct {
	Store     ledger.Store
	Publisher services.EventPublisher // nil when events are disabled
	Ready     ReadyFunc
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
