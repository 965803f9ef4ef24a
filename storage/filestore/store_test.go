package filestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/steamid"
	"github.com/vuquang23/steamauto/storage"
)

func testState() *session.State {
	return &session.State{
		SteamID:      steamid.SteamId(76561198000000001),
		SessionID:    "sid",
		Tokens:       map[string]string{"steamcommunity.com": "secret-token"},
		RefreshToken: "secret-refresh",
		ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Sessions().Load(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Sessions().Save(ctx, "alice", testState()))
	got, err := s.Sessions().Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, testState().Tokens, got.Tokens)
	assert.Equal(t, testState().SteamID, got.SteamID)
	assert.True(t, testState().ExpiresAt.Equal(got.ExpiresAt))
}

func TestSessionEncrypted(t *testing.T) {
	dir := t.TempDir()
	key := bytes.Repeat([]byte{7}, 32)
	s, err := New(dir, WithKey(key))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Sessions().Save(ctx, "alice", testState()))
	raw, err := os.ReadFile(filepath.Join(dir, sessionsDir, "alice.json"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, sealedMagic))
	assert.NotContains(t, string(raw), "secret-refresh")

	got, err := s.Sessions().Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "secret-refresh", got.RefreshToken)

	plain, err := New(dir)
	require.NoError(t, err)
	_, err = plain.Sessions().Load(ctx, "alice")
	assert.ErrorIs(t, err, ErrSealed)

	other, err := New(dir, WithKey(bytes.Repeat([]byte{8}, 32)))
	require.NoError(t, err)
	_, err = other.Sessions().Load(ctx, "alice")
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestPolicyRoundTrip(t *testing.T) {
	s, err := New(t.TempDir(), WithKey(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	ctx := context.Background()

	p := automation.DefaultPolicy()
	p.AutoAcceptGifts = true
	p.Counters.Accepted = 3
	p.PendingTrades = []uint64{42}
	require.NoError(t, s.Policies().Save(ctx, "alice", &p))

	got, err := s.Policies().Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p.Interval, got.Interval)
	assert.Equal(t, 3, got.Counters.Accepted)
	assert.Equal(t, []uint64{42}, got.PendingTrades)
}

func TestRejectsBadAccountName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	err = s.Sessions().Save(context.Background(), "../evil", testState())
	assert.ErrorIs(t, err, storage.ErrInvalidAccount)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Sessions().Save(context.Background(), "alice", testState()))
	}
	entries, err := os.ReadDir(filepath.Join(dir, sessionsDir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice.json", entries[0].Name())
}

func TestParseKey(t *testing.T) {
	_, err := ParseKey("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrBadKey)
	key, err := ParseKey("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestProxyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxies:\n  alice: http://10.0.0.1:3128\n"), 0o600))

	pf, err := LoadProxies(path)
	require.NoError(t, err)
	proxy, ok, err := pf.Proxy(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://10.0.0.1:3128", proxy)

	_, ok, err = pf.Proxy(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}
