// Package store persists users and chat messages in SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/gommon/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"uk.co.dudmesh.pinboard/internal/model"
	"uk.co.dudmesh.pinboard/internal/store/migrations"
)

type Options struct {
	Retries   uint64
	RetryBase time.Duration
}

var DefaultOptions = Options{Retries: 3, RetryBase: 25 * time.Millisecond}

type Store struct {
	db       *sqlx.DB
	users    *UserStore
	messages *MessageStore
}

// Open connects to the database file at dbPath, creating it if needed, and
// applies any pending migrations.
func Open(ctx context.Context, dbPath string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", "file:"+dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	r := retrier{retries: opts.Retries, base: opts.RetryBase}
	return &Store{
		db:       db,
		users:    &UserStore{db: db, retrier: r},
		messages: &MessageStore{db: db, retrier: r},
	}, nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(log.New("migrations"))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, ".")
}

func (s *Store) Users() *UserStore {
	return s.users
}

func (s *Store) Messages() *MessageStore {
	return s.messages
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w: %w", model.ErrorStorageFailure, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
