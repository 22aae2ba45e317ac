package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/messagely/messagely/internal/core/ports"
	"github.com/messagely/messagely/internal/infrastructure/config"
	"github.com/messagely/messagely/internal/infrastructure/db/mongo"
	"github.com/messagely/messagely/internal/infrastructure/db/postgres"
	"github.com/messagely/messagely/internal/infrastructure/http/handlers"
)

// store bundles the repositories of the selected backend.
type store struct {
	users    ports.UserRepository
	messages ports.MessageRepository
	name     string
	ping     handlers.PingFunc
	close    func(ctx context.Context)
}

// openStore connects to the backend named by STORE_DRIVER and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("postgres migrations applied")
		}
		return &store{
			users:    postgres.NewUserRepository(pool),
			messages: postgres.NewMessageRepository(pool),
			name:     "postgres",
			ping:     pool.Ping,
			close:    func(context.Context) { pool.Close() },
		}, nil

	case config.DriverMongo:
		m, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
		return &store{
			users:    mongo.NewUserRepository(m.DB),
			messages: mongo.NewMessageRepository(m.DB),
			name:     "mongodb",
			ping:     m.Ping,
			close: func(ctx context.Context) {
				if err := m.Close(ctx); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect failed")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

var errMigrateUnsupported = errors.New("migrate: only the postgres store uses schema migrations")
