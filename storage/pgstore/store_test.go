package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/storage"
)

func openTestStore(t *testing.T) *Store {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres integration test")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	account := "test-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		for _, table := range []string{"sessions", "policies", "proxies"} {
			_, _ = s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE account = $1", account)
		}
	})

	_, err := s.Sessions().Load(ctx, account)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	st := &session.State{SessionID: "sid", Tokens: map[string]string{"steamcommunity.com": "tok"}, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Sessions().Save(ctx, account, st))
	st.SessionID = "sid2"
	require.NoError(t, s.Sessions().Save(ctx, account, st))
	got, err := s.Sessions().Load(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, "sid2", got.SessionID)

	p := automation.DefaultPolicy()
	p.AutoConfirmMarket = true
	require.NoError(t, s.Policies().Save(ctx, account, &p))
	gotPolicy, err := s.Policies().Load(ctx, account)
	require.NoError(t, err)
	assert.True(t, gotPolicy.AutoConfirmMarket)

	require.NoError(t, s.SetProxy(ctx, account, "http://10.0.0.2:8080"))
	proxy, ok, err := s.Proxy(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://10.0.0.2:8080", proxy)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
