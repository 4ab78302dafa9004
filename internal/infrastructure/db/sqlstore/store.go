// Package sqlstore is the relational user store, backed by SQLite or
// PostgreSQL through database/sql and meddler.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/russross/meddler"

	// PostgreSQL driver
	_ "github.com/lib/pq"
	// Sqlite driver
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	pingAttempts = 10
	pingBackoff  = time.Second
)

// Store is used to access data from the sql/database driver with a
// relational database backend.
type Store struct {
	*sql.DB

	driver string
}

// Open creates a database connection for the given driver and datasource,
// waits for it to answer and runs pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("sql store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if driver == DriverSQLite {
		// Every new connection to ":memory:" is a separate database, and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
	}

	setupMeddler(driver)

	if err := pingDatabase(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping: %w", err)
	}
	if err := Migrate(driver, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql migrate: %w", err)
	}

	return &Store{DB: db, driver: driver}, nil
}

// NewTest opens a fresh in-memory SQLite store.
func NewTest() (*Store, error) {
	return Open(context.Background(), DriverSQLite, ":memory:")
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// helper function to ping the database with backoff to ensure a connection
// can be established before we proceed with the migration.
func pingDatabase(ctx context.Context, db *sql.DB) (err error) {
	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pingBackoff):
		}
	}
	return err
}

// helper function to setup the meddler default driver based on the
// selected driver name.
func setupMeddler(driver string) {
	switch driver {
	case DriverSQLite:
		meddler.Default = meddler.SQLite
	case DriverPostgres:
		meddler.Default = meddler.PostgreSQL
	}
}
