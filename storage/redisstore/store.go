// Package redisstore keeps session and policy records as JSON strings in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/storage"
)

const (
	sessionPrefix = "steamauto:session:"
	policyPrefix  = "steamauto:policy:"
	proxiesKey    = "steamauto:proxies"
)

type Config struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type Store struct {
	client redis.UniversalClient
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client), nil
}

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{s}
}

func (s *Store) Policies() *PolicyStore {
	return &PolicyStore{s}
}

func (s *Store) get(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *Store) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

// Proxy reads the account's entry of the steamauto:proxies hash.
func (s *Store) Proxy(ctx context.Context, account string) (string, bool, error) {
	proxy, err := s.client.HGet(ctx, proxiesKey, account).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return proxy, proxy != "", nil
}

func (s *Store) SetProxy(ctx context.Context, account, proxy string) error {
	return s.client.HSet(ctx, proxiesKey, account, proxy).Err()
}

type SessionStore struct {
	s *Store
}

func (ss *SessionStore) Load(ctx context.Context, account string) (*session.State, error) {
	var st session.State
	if err := ss.s.get(ctx, sessionPrefix+account, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (ss *SessionStore) Save(ctx context.Context, account string, st *session.State) error {
	if err := storage.ValidateAccount(account); err != nil {
		return err
	}
	return ss.s.set(ctx, sessionPrefix+account, st)
}

type PolicyStore struct {
	s *Store
}

func (ps *PolicyStore) Load(ctx context.Context, account string) (*automation.Policy, error) {
	var p automation.Policy
	if err := ps.s.get(ctx, policyPrefix+account, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *PolicyStore) Save(ctx context.Context, account string, p *automation.Policy) error {
	if err := storage.ValidateAccount(account); err != nil {
		return err
	}
	return ps.s.set(ctx, policyPrefix+account, p)
}
