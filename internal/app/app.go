// Package app assembles the per-account stacks from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/community"
	"github.com/vuquang23/steamauto/confirmation"
	"github.com/vuquang23/steamauto/internal/config"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/notify"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/steamid"
	"github.com/vuquang23/steamauto/totp"
	"github.com/vuquang23/steamauto/tradeoffer"
)

var ErrNoSteamID = errors.New("steam id is neither configured nor present in the guard file")

// Account is everything wired for one configured account.
type Account struct {
	Config        config.AccountConfig
	SteamID       steamid.SteamId
	Guard         *totp.GuardBundle
	Clock         *totp.TimeOffset
	Client        netutil.Doer
	Session       *session.Manager
	Trades        *tradeoffer.Client
	Confirmations *confirmation.Client
	Runner        *automation.Runner
}

type App struct {
	Config     *config.Config
	Log        logger.Logger
	Gate       *netutil.Gate
	Notifier   notify.Sink
	Backend    *Backend
	Supervisor *automation.Supervisor

	accounts map[string]*Account
}

// New opens the backend and builds every configured account. Nothing talks
// to Steam until a runner starts or a command asks for it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	backend, err := OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &App{
		Config:     cfg,
		Log:        log,
		Gate:       netutil.NewGate(cfg.Network.MinRequestDelay),
		Notifier:   newNotifier(cfg.Notify, log),
		Backend:    backend,
		Supervisor: automation.NewSupervisor(log),
		accounts:   make(map[string]*Account, len(cfg.Accounts)),
	}
	for _, ac := range cfg.Accounts {
		acc, err := a.build(ctx, ac)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("account %s: %w", ac.Name, err)
		}
		if err := a.Supervisor.Add(acc.Runner); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("account %s: %w", ac.Name, err)
		}
		a.accounts[ac.Name] = acc
	}
	return a, nil
}

func newNotifier(cfg config.NotifyConfig, log logger.Logger) notify.Sink {
	sinks := notify.Multi{notify.NewLogSink(log)}
	if cfg.Telegram {
		tg, err := notify.NewTelegramFromEnv(cfg.EnvFile, log)
		if err != nil {
			log.Warn("telegram notifications disabled", logger.Error(err))
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}

func (a *App) build(ctx context.Context, ac config.AccountConfig) (*Account, error) {
	guard, err := totp.LoadGuard(ac.GuardPath)
	if err != nil {
		return nil, err
	}
	steamID := ac.SteamID
	if steamID.IsZero() {
		steamID = guard.SteamID
	}
	if steamID.IsZero() {
		return nil, ErrNoSteamID
	}
	if guard.DeviceID == "" {
		guard.DeviceID = totp.DeviceID(steamID)
	}
	if guard.AccountName == "" {
		guard.AccountName = ac.Name
	}

	proxy, err := a.proxyFor(ctx, ac)
	if err != nil {
		return nil, err
	}
	client, err := netutil.NewClient(netutil.Options{
		Gate:    a.Gate,
		Proxy:   proxy,
		Timeout: a.Config.Network.Timeout,
	})
	if err != nil {
		return nil, err
	}

	log := a.Log.With(logger.Account(ac.Name))
	sessOpts := []session.Option{
		session.WithRenewer(community.NewRenewer(client, log)),
		session.WithNotifier(a.Notifier),
	}
	if ac.RefreshToken != "" {
		sessOpts = append(sessOpts, session.WithRefreshToken(ac.RefreshToken))
	}
	mgr := session.NewManager(ac.Name, steamID, community.NewExchanger(client, log), a.Backend.Sessions, log, sessOpts...)

	var tradeOpts []tradeoffer.Option
	if ac.APIKey != "" {
		tradeOpts = append(tradeOpts, tradeoffer.WithAPIKey(tradeoffer.APIKey(ac.APIKey)))
	}
	clock := totp.NewTimeOffset()
	acc := &Account{
		Config:        ac,
		SteamID:       steamID,
		Guard:         guard,
		Clock:         clock,
		Client:        client,
		Session:       mgr,
		Trades:        tradeoffer.NewClient(client, mgr, log, tradeOpts...),
		Confirmations: confirmation.NewClient(client, mgr, guard, log, confirmation.WithClock(clock)),
	}

	account := ac.Account
	account.SteamID = steamID
	runnerOpts := []automation.Option{
		automation.WithDefaultPolicy(a.Config.Automation.Policy()),
		automation.WithMaxErrors(a.Config.Automation.MaxErrors),
	}
	if n := a.Config.Automation.NotifyAfter; n > 0 {
		runnerOpts = append(runnerOpts, automation.WithNotifyAfter(n))
	}
	acc.Runner = automation.NewRunner(account, automation.Deps{
		Session:       mgr,
		Trades:        acc.Trades,
		Confirmations: acc.Confirmations,
		Policies:      a.Backend.Policies,
		Notifier:      a.Notifier,
	}, a.Log, runnerOpts...)
	return acc, nil
}

// proxyFor prefers a URL written directly on the account, then the proxy
// provider keyed by the account's proxy reference or name.
func (a *App) proxyFor(ctx context.Context, ac config.AccountConfig) (string, error) {
	if strings.Contains(ac.ProxyRef, "://") {
		return ac.ProxyRef, nil
	}
	key := ac.ProxyRef
	if key == "" {
		key = ac.Name
	}
	proxy, ok, err := a.Backend.Proxies.Proxy(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve proxy: %w", err)
	}
	if !ok {
		return "", nil
	}
	return proxy, nil
}

func (a *App) Account(name string) (*Account, error) {
	acc, ok := a.accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", automation.ErrUnknownAccount, name)
	}
	return acc, nil
}

// Accounts returns the wired accounts in configuration order.
func (a *App) Accounts() []*Account {
	out := make([]*Account, 0, len(a.Config.Accounts))
	for _, ac := range a.Config.Accounts {
		out = append(out, a.accounts[ac.Name])
	}
	return out
}

// SyncClocks aligns every account's code clock with Steam server time.
// Failures keep the local clock and are only logged.
func (a *App) SyncClocks(ctx context.Context) {
	for _, acc := range a.Accounts() {
		if err := acc.Confirmations.UpdateTimeOffset(ctx); err != nil {
			a.Log.Warn("server time sync failed", logger.Account(acc.Config.Name), logger.Error(err))
		}
	}
}

func (a *App) Close() error {
	a.Supervisor.StopAll()
	_ = a.Log.Sync()
	return a.Backend.Close()
}
