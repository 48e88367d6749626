package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	persistence "github.com/goliatone/go-persistence-bun"
	connector "github.com/goliatone/go-salesforce-connector"
	"github.com/goliatone/go-salesforce-connector/adapters/gocommand"
	"github.com/goliatone/go-salesforce-connector/adapters/zerologger"
	"github.com/goliatone/go-salesforce-connector/config"
	"github.com/goliatone/go-salesforce-connector/core"
	connectormigrations "github.com/goliatone/go-salesforce-connector/migrations"
	"github.com/goliatone/go-salesforce-connector/security"
	redisstore "github.com/goliatone/go-salesforce-connector/store/redis"
	sqlstore "github.com/goliatone/go-salesforce-connector/store/sql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const pingTimeout = 5 * time.Second

type persistenceConfig struct {
	core.PersistenceConfig
}

func (c persistenceConfig) GetDebug() bool                { return c.Debug }
func (c persistenceConfig) GetDriver() string             { return c.Driver }
func (c persistenceConfig) GetServer() string             { return c.DSN }
func (c persistenceConfig) GetPingTimeout() time.Duration { return pingTimeout }
func (c persistenceConfig) GetOtelIdentifier() string     { return "salesforce-connector" }

// app holds the process wiring shared by every subcommand.
type app struct {
	cfg      core.Config
	logger   *zerologger.Logger
	client   *persistence.Client
	conn     *connector.Connector
	bus      *gocommand.Bus
	closeFns []func() error
}

type appOptions struct {
	configPath string
	logLevel   string
	logOutput  io.Writer
	environ    map[string]string
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(ctx, opts.configPath, opts.environ)
	if err != nil {
		return nil, err
	}
	logger := zerologger.NewConsole(opts.logOutput, opts.logLevel)
	a := &app{cfg: cfg, logger: logger}

	client, err := openDatabase(ctx, cfg.Persistence)
	if err != nil {
		return nil, err
	}
	a.client = client
	a.closeFns = append(a.closeFns, client.Close)

	factoryOpts := []sqlstore.FactoryOption{
		sqlstore.WithLogger(logger.WithFields(map[string]any{"component": "sqlstore"})),
	}
	if key := strings.TrimSpace(cfg.Security.AppKey); key != "" {
		secrets, err := security.NewAppKeySecretProviderFromString(key)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connector: app key: %w", err)
		}
		factoryOpts = append(factoryOpts, sqlstore.WithSecretProvider(secrets))
	} else {
		logger.Warn("no app key configured; credentials and tokens are stored unencrypted")
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, factoryOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	flowOpts := []core.Option{
		core.WithLoggerProvider(zerologger.NewProvider(logger)),
		core.WithOptionStore(factory.OptionStore()),
		core.WithLogStore(factory.LogStore()),
		core.WithEphemeralStore(factory.EphemeralStore()),
	}
	if strings.TrimSpace(cfg.Redis.Address) != "" {
		redisClient, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closeFns = append(a.closeFns, redisClient.Close)
		ephemeral, err := redisstore.NewEphemeralStore(redisClient)
		if err != nil {
			a.Close()
			return nil, err
		}
		flowOpts = append(flowOpts, core.WithEphemeralStore(ephemeral))
	}

	conn, err := connector.New(cfg, connector.WithFlowOptions(flowOpts...))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.conn = conn

	bus, err := gocommand.NewBus(gocommand.WithLogger(logger.WithFields(map[string]any{"component": "gocommand"})))
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := gocommand.RegisterFacade(bus, conn.Facade()); err != nil {
		a.Close()
		return nil, err
	}
	a.bus = bus
	return a, nil
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	a.bus.Close()
	a.bus = nil
	var firstErr error
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closeFns = nil
	return firstErr
}

// openDatabase connects with the configured driver and applies the embedded
// migrations for its dialect.
func openDatabase(ctx context.Context, cfg core.PersistenceConfig) (*persistence.Client, error) {
	dialect, err := connectormigrations.NormalizeDialect(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("connector: unsupported database driver %q", cfg.Driver)
	}
	var (
		driver    string
		newClient func(persistenceConfig, *sql.DB) (*persistence.Client, error)
	)
	switch dialect {
	case connectormigrations.DialectSQLite:
		driver = "sqlite3"
		newClient = func(cfg persistenceConfig, db *sql.DB) (*persistence.Client, error) {
			return persistence.New(cfg, db, sqlitedialect.New())
		}
	default:
		driver = "postgres"
		newClient = func(cfg persistenceConfig, db *sql.DB) (*persistence.Client, error) {
			return persistence.New(cfg, db, pgdialect.New())
		}
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("connector: persistence.dsn is required")
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connector: open database: %w", err)
	}
	if driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}
	cfg.Driver = driver
	client, err := newClient(persistenceConfig{cfg}, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connector: persistence client: %w", err)
	}

	_, err = connectormigrations.Register(dialect, func(fsys fs.FS) {
		client.RegisterSQLMigrations(fsys)
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connector: migrate: %w", err)
	}
	return client, nil
}

func dispatchWithResult[T any, R any](ctx context.Context, msg T) (R, error) {
	collector := gocmd.NewResult[R]()
	if err := commanddispatcher.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		var zero R
		return zero, err
	}
	result, _ := collector.Load()
	return result, nil
}

func dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}
