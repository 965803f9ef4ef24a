package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/internal/config"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/storage"
	"github.com/vuquang23/steamauto/storage/filestore"
	"github.com/vuquang23/steamauto/storage/pgstore"
	"github.com/vuquang23/steamauto/storage/redisstore"
)

// Backend is the selected persistence layer.
type Backend struct {
	Sessions session.Store
	Policies automation.PolicyStore
	Proxies  storage.ProxyProvider
	closer   io.Closer
}

func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// OpenBackend opens the store named by cfg.Backend. A proxies file, when set,
// takes precedence over proxies kept in the backend.
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	b := &Backend{Proxies: storage.NoProxy{}}
	switch cfg.Backend {
	case config.BackendFile:
		var opts []filestore.Option
		if cfg.EncryptionKey != "" {
			key, err := filestore.ParseKey(cfg.EncryptionKey)
			if err != nil {
				return nil, err
			}
			opts = append(opts, filestore.WithKey(key))
		}
		s, err := filestore.New(cfg.Dir, opts...)
		if err != nil {
			return nil, err
		}
		b.Sessions, b.Policies = s.Sessions(), s.Policies()
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		b.Sessions, b.Policies, b.Proxies, b.closer = s.Sessions(), s.Policies(), s, s
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.Sessions, b.Policies, b.Proxies, b.closer = s.Sessions(), s.Policies(), s, s
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ProxiesFile != "" {
		pf, err := filestore.LoadProxies(cfg.ProxiesFile)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Proxies = pf
	}
	return b, nil
}
