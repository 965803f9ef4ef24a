package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vuquang23/steamauto/community"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/notify"
	"github.com/vuquang23/steamauto/steamid"
	"github.com/vuquang23/steamauto/storage"
)

const (
	defaultSkew           = time.Minute
	defaultRenewWithin    = 7 * 24 * time.Hour
	defaultRefreshTimeout = 2 * time.Minute
	defaultLifetime       = 24 * time.Hour
)

type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string, steamID steamid.SteamId) (*community.WebSession, error)
}

type Renewer interface {
	Renew(ctx context.Context, refreshToken string, steamID steamid.SteamId) (*community.RenewedTokens, error)
}

// Store persists session state. Load returns storage.ErrNotFound when the
// account has no saved state.
type Store interface {
	Load(ctx context.Context, account string) (*State, error)
	Save(ctx context.Context, account string, state *State) error
}

type Option func(*Manager)

func WithRenewer(r Renewer) Option {
	return func(m *Manager) { m.renewer = r }
}

func WithNotifier(sink notify.Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithRefreshToken seeds the credential used when the store holds nothing.
func WithRefreshToken(token string) Option {
	return func(m *Manager) { m.seed = token }
}

func WithSkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

func WithRenewWithin(d time.Duration) Option {
	return func(m *Manager) { m.renewWithin = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Status is a point-in-time view of a manager.
type Status struct {
	Account     string    `json:"account"`
	HasSession  bool      `json:"has_session"`
	ExpiresAt   time.Time `json:"expires_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	NeedsReauth bool      `json:"needs_reauth"`
	LastError   string    `json:"last_error,omitempty"`
	Refreshes   int       `json:"refreshes"`
}

// Manager keeps one account's web session valid. At most one refresh runs at a
// time; concurrent callers wait for it and share its result.
type Manager struct {
	account   string
	steamID   steamid.SteamId
	exchanger Exchanger
	renewer   Renewer
	store     Store
	sink      notify.Sink
	log       logger.Logger

	seed           string
	skew           time.Duration
	renewWithin    time.Duration
	refreshTimeout time.Duration
	now            func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	state       *State
	loaded      bool
	invalid     bool
	needsReauth bool
	notified    bool
	lastErr     error
	refreshes   int
}

func NewManager(account string, steamID steamid.SteamId, exchanger Exchanger, store Store, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		account:        account,
		steamID:        steamID,
		exchanger:      exchanger,
		store:          store,
		sink:           notify.Nop(),
		log:            log.With(logger.Component("session"), logger.Account(account)),
		skew:           defaultSkew,
		renewWithin:    defaultRenewWithin,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Account() string {
	return m.account
}

// EnsureValid returns a usable session, refreshing it first when it is
// missing, expired or invalidated. The returned state is a copy.
func (m *Manager) EnsureValid(ctx context.Context) (*State, error) {
	if st, ok, err := m.cached(); ok {
		return st, err
	}

	// The refresh is shared, so one caller giving up must not cancel it.
	ch := m.group.DoChan(m.account, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*State).Clone(), nil
	}
}

func (m *Manager) cached() (*State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.needsReauth {
		return nil, true, fmt.Errorf("%w: %w", ErrNeedsReauth, m.lastErr)
	}
	if m.state != nil && !m.invalid && !m.state.Expired(m.now(), m.skew) {
		return m.state.Clone(), true, nil
	}
	return nil, false, nil
}

// Invalidate marks the session unusable, typically after the remote rejected
// it. The next EnsureValid refreshes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.invalid = true
	m.mu.Unlock()
}

func (m *Manager) ForceRefresh(ctx context.Context) (*State, error) {
	m.Invalidate()
	return m.EnsureValid(ctx)
}

// Reset installs a new refresh credential supplied by the operator and clears
// the needs-reauth mark.
func (m *Manager) Reset(ctx context.Context, refreshToken string) (*State, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshCredential
	}
	m.mu.Lock()
	var st *State
	if m.state != nil {
		st = m.state.Clone()
	} else {
		st = &State{SteamID: m.steamID}
	}
	st.RefreshToken = refreshToken
	m.state = st
	m.loaded = true
	m.invalid = true
	m.needsReauth = false
	m.notified = false
	m.lastErr = nil
	m.mu.Unlock()

	m.log.Info("refresh credential replaced")
	return m.EnsureValid(ctx)
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		Account:     m.account,
		NeedsReauth: m.needsReauth,
		Refreshes:   m.refreshes,
	}
	if m.state != nil && len(m.state.Tokens) != 0 {
		s.HasSession = true
		s.ExpiresAt = m.state.ExpiresAt
		s.RefreshedAt = m.state.RefreshedAt
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

func (m *Manager) refresh(ctx context.Context) (*State, error) {
	now := m.now()

	m.mu.Lock()
	if m.state != nil && !m.invalid && !m.state.Expired(now, m.skew) {
		st := m.state
		m.mu.Unlock()
		return st, nil
	}
	cur, loaded, invalid := m.state, m.loaded, m.invalid
	m.mu.Unlock()

	if !loaded {
		stored, err := m.store.Load(ctx, m.account)
		switch {
		case err == nil:
			cur = stored
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, m.fail(fmt.Errorf("load session: %w", err))
		}
		m.mu.Lock()
		m.loaded = true
		m.state = cur
		m.mu.Unlock()
		if cur != nil && !invalid && !cur.Expired(now, m.skew) {
			m.log.Debug("session restored from store", logger.Time("expires_at", cur.ExpiresAt))
			return cur, nil
		}
	}

	refreshToken := m.seed
	steamID := m.steamID
	if cur != nil {
		if cur.RefreshToken != "" {
			refreshToken = cur.RefreshToken
		}
		if !cur.SteamID.IsZero() {
			steamID = cur.SteamID
		}
	}
	if refreshToken == "" {
		return nil, m.terminal(ctx, ErrNoRefreshCredential)
	}

	refreshToken, err := m.renew(ctx, cur, refreshToken, steamID)
	if err != nil {
		return nil, err
	}

	ws, err := m.exchanger.Exchange(ctx, refreshToken, steamID)
	if err != nil {
		if errors.Is(err, community.ErrExpiredRefreshCredential) {
			return nil, m.terminal(ctx, err)
		}
		return nil, m.fail(err)
	}

	st := newState(ws, refreshToken, m.now())
	if err := m.store.Save(ctx, m.account, st); err != nil {
		return nil, m.fail(fmt.Errorf("%w: %w", ErrPersist, err))
	}

	m.mu.Lock()
	m.state = st
	m.invalid = false
	m.lastErr = nil
	m.refreshes++
	m.mu.Unlock()

	m.log.Info("session refreshed",
		logger.Int("domains", len(st.Tokens)),
		logger.Time("expires_at", st.ExpiresAt),
	)
	return st, nil
}

// renew rotates the refresh credential when it is close to expiry. A rotated
// credential is saved before anything else uses it, since Steam may revoke the
// old one.
func (m *Manager) renew(ctx context.Context, cur *State, refreshToken string, steamID steamid.SteamId) (string, error) {
	if m.renewer == nil {
		return refreshToken, nil
	}
	exp, ok := community.TokenExpiry(refreshToken)
	if !ok || exp.Sub(m.now()) > m.renewWithin {
		return refreshToken, nil
	}

	tokens, err := m.renewer.Renew(ctx, refreshToken, steamID)
	if err != nil {
		if errors.Is(err, community.ErrExpiredRefreshCredential) {
			return "", m.terminal(ctx, err)
		}
		m.log.Warn("refresh credential renewal failed", logger.Error(err))
		return refreshToken, nil
	}
	if tokens.RefreshToken == "" || tokens.RefreshToken == refreshToken {
		return refreshToken, nil
	}

	var interim *State
	if cur != nil {
		interim = cur.Clone()
	} else {
		interim = &State{SteamID: steamID}
	}
	interim.RefreshToken = tokens.RefreshToken
	if err := m.store.Save(ctx, m.account, interim); err != nil {
		return "", m.fail(fmt.Errorf("%w: rotated credential: %w", ErrPersist, err))
	}
	m.mu.Lock()
	m.state = interim
	m.invalid = true
	m.mu.Unlock()

	m.log.Info("refresh credential rotated")
	return tokens.RefreshToken, nil
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.log.Warn("session refresh failed", logger.Error(err))
	return err
}

func (m *Manager) terminal(ctx context.Context, err error) error {
	m.mu.Lock()
	m.needsReauth = true
	m.lastErr = err
	first := !m.notified
	m.notified = true
	m.mu.Unlock()

	m.log.Error("refresh credential rejected", logger.Error(err))
	if first {
		m.sink.Notify(ctx, m.account, notify.NewEvent(notify.EventNeedsReauth, "refresh credential rejected: %v", err))
	}
	return fmt.Errorf("%w: %w", ErrNeedsReauth, err)
}
