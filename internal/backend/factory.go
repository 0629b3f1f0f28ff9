package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/gladysonss/opensheets-app-sub000/internal/amqp"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/storage"
	"github.com/gladysonss/opensheets-app-sub000/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// connect opens the event publisher; replaced in tests.
	connect func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		connect: amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, res, config)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store: memory.NewStore(),
		Ready: func(context.Context) error { return nil },
	}
}

// attachPublisher connects the event publisher when configured. An
// unreachable broker is logged and the backend runs without events.
func (f *DefaultFactory) attachPublisher(ctx context.Context, res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := f.connect(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Publisher = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		err := client.Close()
		if storeCleanup != nil {
			err = errors.Join(err, storeCleanup())
		}
		return err
	}
}
