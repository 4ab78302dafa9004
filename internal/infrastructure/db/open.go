// Package db selects and opens the configured user store.
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/infrastructure/db/mongo"
	"github.com/socis/member-portal/internal/infrastructure/db/sqlstore"
	"github.com/socis/member-portal/internal/pkg/config"
)

// UserStore is a UserRepository that can also provision rows. Only tooling
// and tests insert users; the service never does.
type UserStore interface {
	ports.UserRepository
	Insert(ctx context.Context, u *domain.User) error
}

// CloseFunc releases the store's connections.
type CloseFunc func(ctx context.Context) error

// Open connects to the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (UserStore, CloseFunc, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, database, err := mongo.Connect(ctx, mongo.Config{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := mongo.NewUserRepository(database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")
		return repo, client.Disconnect, nil

	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		store, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("connected to SQL store")
		return sqlstore.NewUserRepository(store), func(context.Context) error { return store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
