package sqlstore

import (
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db      *bun.DB
	secrets core.SecretProvider
	now     func() time.Time
	logger  core.Logger

	optionStore    *OptionStore
	ephemeralStore *EphemeralStore
	logStore       *LogStore
}

type FactoryOption func(*RepositoryFactory)

// WithSecretProvider encrypts option documents at rest.
func WithSecretProvider(secrets core.SecretProvider) FactoryOption {
	return func(f *RepositoryFactory) {
		f.secrets = secrets
	}
}

func WithClock(now func() time.Time) FactoryOption {
	return func(f *RepositoryFactory) {
		if now != nil {
			f.now = now
		}
	}
}

func WithLogger(logger core.Logger) FactoryOption {
	return func(f *RepositoryFactory) {
		f.logger = logger
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.optionStore != nil && f.ephemeralStore != nil && f.logStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) OptionStore() *OptionStore {
	if f == nil {
		return nil
	}
	return f.optionStore
}

func (f *RepositoryFactory) EphemeralStore() *EphemeralStore {
	if f == nil {
		return nil
	}
	return f.ephemeralStore
}

func (f *RepositoryFactory) LogStore() *LogStore {
	if f == nil {
		return nil
	}
	return f.logStore
}

func (f *RepositoryFactory) initStores() error {
	optionStore, err := NewOptionStore(f.db, f.secrets)
	if err != nil {
		return err
	}
	if f.now != nil {
		optionStore.now = f.now
	}
	ephemeralStore, err := NewEphemeralStore(f.db, f.now)
	if err != nil {
		return err
	}
	ephemeralStore.logger = glog.Ensure(f.logger)
	logStore, err := NewLogStore(f.db)
	if err != nil {
		return err
	}
	f.optionStore = optionStore
	f.ephemeralStore = ephemeralStore
	f.logStore = logStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
