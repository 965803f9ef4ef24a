package automation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/session"
)

func namedRunner(f *fixture, name string, p Policy) *Runner {
	deps := Deps{Session: f.session, Trades: f.trades, Confirmations: f.confs, Policies: f.policies, Notifier: f.sink}
	return NewRunner(Account{Name: name}, deps, logger.Nop(), WithDefaultPolicy(p))
}

func slowPolicy() Policy {
	p := autoPolicy()
	p.Interval = 120 * time.Second
	return p
}

func TestSupervisorStartStop(t *testing.T) {
	f := newFixture()
	s := NewSupervisor(logger.Nop())
	require.NoError(t, s.Add(namedRunner(f, "bob", slowPolicy())))
	require.NoError(t, s.Add(namedRunner(f, "alice", slowPolicy())))
	assert.ErrorIs(t, s.Add(namedRunner(f, "bob", slowPolicy())), ErrDuplicate)

	ctx := context.Background()
	s.StartAll(ctx)
	assert.ErrorIs(t, s.Start(ctx, "alice"), ErrAlreadyRunning)
	assert.ErrorIs(t, s.Start(ctx, "carol"), ErrUnknownAccount)

	require.Eventually(t, func() bool {
		for _, snap := range s.Snapshot() {
			if snap.State != StateSleeping {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	snaps := s.Snapshot()
	require.Len(t, snaps, 2)
	assert.Equal(t, "alice", snaps[0].Name)
	assert.Equal(t, "bob", snaps[1].Name)

	require.NoError(t, s.Stop("alice"))
	assert.False(t, s.Running("alice"))
	assert.True(t, s.Running("bob"))
	r, _ := s.Runner("alice")
	assert.Equal(t, StateStopped, r.State())

	s.StopAll()
	assert.False(t, s.Running("bob"))
}

func TestSupervisorSuspendedAccount(t *testing.T) {
	f := newFixture()
	f.session.err = fmt.Errorf("%w: revoked", session.ErrNeedsReauth)
	s := NewSupervisor(logger.Nop())
	require.NoError(t, s.Add(namedRunner(f, "alice", slowPolicy())))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx, "alice"))
	require.Eventually(t, func() bool { return !s.Running("alice") }, time.Second, 5*time.Millisecond)
	r, _ := s.Runner("alice")
	assert.Equal(t, StateSuspended, r.State())
	assert.ErrorIs(t, s.Start(ctx, "alice"), ErrSuspended)

	f.session.mu.Lock()
	f.session.err = nil
	f.session.mu.Unlock()
	require.NoError(t, s.Resume(ctx, "alice"))
	require.Eventually(t, func() bool { return r.State() == StateSleeping }, time.Second, 5*time.Millisecond)
	s.StopAll()
}
