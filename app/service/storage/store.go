package storage

import (
	"context"
	"database/sql"
	"debtslayer/app/config"
	"debtslayer/app/service/ledger"
	"debtslayer/app/util/broadcast"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/do"
	_ "modernc.org/sqlite"
)

const (
	busyRetries      = 5
	busyInitialDelay = 50 * time.Millisecond
)

var _ do.Shutdownable = (*Store)(nil)

// Store persists deposits, conversation turns, chat messages, feedback and settings in sqlite.
type Store struct {
	db  *sql.DB
	now func() time.Time

	deposits *broadcast.Broadcaster[[]ledger.Deposit]
}

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.DB.Path)
}

func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err = db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{
		db:       db,
		now:      time.Now,
		deposits: broadcast.New[[]ledger.Deposit]("deposits", 4),
	}
	if err = s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("Sqlite store opened", "path", path)

	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deposits (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			amount     INTEGER NOT NULL CHECK (amount > 0),
			source     TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_created ON deposits(created_at)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			user_text      TEXT    NOT NULL,
			assistant_text TEXT    NOT NULL,
			succeeded      INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			text         TEXT    NOT NULL,
			from_user    INTEGER NOT NULL,
			session_date TEXT    NOT NULL,
			feedback     INTEGER,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_date)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id        INTEGER NOT NULL,
			user_message      TEXT    NOT NULL,
			assistant_message TEXT    NOT NULL,
			positive          INTEGER NOT NULL,
			context           TEXT    NOT NULL,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) Shutdown() error {
	s.deposits.Close()
	return s.db.Close()
}

// exec retries writes that hit a locked database; other errors fail immediately.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(busyInitialDelay)), busyRetries),
		ctx,
	)

	return backoff.RetryWithData(func() (sql.Result, error) {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil && !isBusy(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}, policy)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
