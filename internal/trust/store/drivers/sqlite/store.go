// Package sqlite provides durable sqlite-backed implementations of the
// blacklist and session stores, for deployments where revocations and
// pending logins must survive a restart.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/quorumsec/trustd/internal/trust/store/drivers/sqlite/migrations"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// modernc sqlite serializes writers; one writer connection avoids
	// SQLITE_BUSY under concurrent revokes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Blacklist returns the revocation store backed by this database.
func (s *Store) Blacklist() *Blacklist { return &Blacklist{db: s.db} }

// Sessions returns the login session store backed by this database.
func (s *Store) Sessions() *Sessions { return &Sessions{db: s.db} }

// ApplyMigrations applies any pending schema migrations using the
// embedded migration files.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
