// Package pgstore keeps session, policy and proxy records in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// Open connects, configures the pool and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s}
}

func (s *Store) Policies() *PolicyStore {
	return &PolicyStore{s}
}

// table is one of the constant names below, never user input.
func (s *Store) load(ctx context.Context, table, account string, out interface{}) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM "+table+" WHERE account = $1", account).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return json.Unmarshal(data, out)
}

func (s *Store) save(ctx context.Context, table, account string, v interface{}) error {
	if err := storage.ValidateAccount(account); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (account, data, updated_at) VALUES ($1, $2, now()) "+
			"ON CONFLICT (account) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at",
		account, data)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (s *Store) Proxy(ctx context.Context, account string) (string, bool, error) {
	var proxy string
	err := s.db.QueryRowContext(ctx, "SELECT url FROM proxies WHERE account = $1", account).Scan(&proxy)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select proxy: %w", err)
	}
	return proxy, proxy != "", nil
}

func (s *Store) SetProxy(ctx context.Context, account, proxy string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO proxies (account, url) VALUES ($1, $2) ON CONFLICT (account) DO UPDATE SET url = EXCLUDED.url",
		account, proxy)
	return err
}

type SessionStore struct {
	s *Store
}

func (ss *SessionStore) Load(ctx context.Context, account string) (*session.State, error) {
	var st session.State
	if err := ss.s.load(ctx, "sessions", account, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (ss *SessionStore) Save(ctx context.Context, account string, st *session.State) error {
	return ss.s.save(ctx, "sessions", account, st)
}

type PolicyStore struct {
	s *Store
}

func (ps *PolicyStore) Load(ctx context.Context, account string) (*automation.Policy, error) {
	var p automation.Policy
	if err := ps.s.load(ctx, "policies", account, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *PolicyStore) Save(ctx context.Context, account string, p *automation.Policy) error {
	return ps.s.save(ctx, "policies", account, p)
}
