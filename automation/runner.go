package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vuquang23/steamauto/classifier"
	"github.com/vuquang23/steamauto/confirmation"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/notify"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/storage"
	"github.com/vuquang23/steamauto/tradeoffer"
)

const defaultNotifyAfter = 3

type SessionManager interface {
	EnsureValid(ctx context.Context) (*session.State, error)
	Invalidate()
	Status() session.Status
}

type TradeClient interface {
	ActiveOffers(ctx context.Context) (*tradeoffer.TradeOffersResult, error)
	Accept(ctx context.Context, offer *tradeoffer.TradeOffer) (*tradeoffer.AcceptResult, error)
}

type ConfirmationClient interface {
	ApproveAll(ctx context.Context, pred confirmation.Predicate) (*confirmation.Result, error)
}

// PolicyStore persists policies whole. Load returns storage.ErrNotFound for
// an account that never saved one.
type PolicyStore interface {
	Load(ctx context.Context, account string) (*Policy, error)
	Save(ctx context.Context, account string, policy *Policy) error
}

// Deps are the per-account collaborators of a Runner.
type Deps struct {
	Session       SessionManager
	Trades        TradeClient
	Confirmations ConfirmationClient
	Policies      PolicyStore
	Notifier      notify.Sink
}

type Option func(*Runner)

func WithDefaultPolicy(p Policy) Option {
	return func(r *Runner) { r.defaults = p }
}

// WithMaxErrors suspends the account after n consecutive failed cycles. Zero,
// the default, keeps the account running through any number of transient
// failures; only an expired credential suspends it.
func WithMaxErrors(n int) Option {
	return func(r *Runner) { r.maxErrors = n }
}

func WithNotifyAfter(n int) Option {
	return func(r *Runner) { r.notifyAfter = n }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// CycleReport describes one pass of the automation cycle.
type CycleReport struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Classified map[classifier.Class]int
	Accepted   []uint64
	Confirmed  int
	Errors     []error
}

// Runner drives the automation cycle of one account.
type Runner struct {
	account  Account
	deps     Deps
	log      logger.Logger
	defaults Policy

	maxErrors   int
	notifyAfter int
	now         func() time.Time

	mu           sync.Mutex
	state        State
	policy       Policy
	policyLoaded bool
	consecutive  int
	lastErr      error
	lastRunID    string
}

func NewRunner(account Account, deps Deps, log logger.Logger, opts ...Option) *Runner {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop()
	}
	r := &Runner{
		account:     account,
		deps:        deps,
		log:         log.With(logger.Component("automation"), logger.Account(account.Name)),
		defaults:    DefaultPolicy(),
		notifyAfter: defaultNotifyAfter,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Account() Account {
	return r.account
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) Policy() Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy.clone()
}

// Resume clears a suspension so the runner can be started again.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateSuspended {
		r.state = StateIdle
	}
	r.consecutive = 0
	r.lastErr = nil
}

// Run repeats the cycle until ctx is cancelled or the account is suspended.
// Cancellation is a clean stop and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.loadPolicy(ctx); err != nil {
		if ctx.Err() != nil {
			r.setState(StateStopped)
			return nil
		}
		r.setState(StateError)
		return err
	}
	r.log.Info("automation started", logger.Duration("interval", r.Policy().Interval))

	for {
		if ctx.Err() != nil {
			return r.stopped()
		}

		_, err := r.RunCycle(ctx)
		if ctx.Err() != nil {
			return r.stopped()
		}
		if err != nil {
			if suspendErr := r.recordFailure(ctx, err); suspendErr != nil {
				return suspendErr
			}
		} else {
			r.recordSuccess()
		}

		r.setState(StateSleeping)
		if !sleep(ctx, r.Policy().Interval) {
			return r.stopped()
		}
	}
}

func (r *Runner) stopped() error {
	r.setState(StateStopped)
	r.log.Info("automation stopped")
	return nil
}

func (r *Runner) loadPolicy(ctx context.Context) error {
	r.mu.Lock()
	loaded := r.policyLoaded
	r.mu.Unlock()
	if loaded {
		return nil
	}

	policy := r.defaults.clone()
	stored, err := r.deps.Policies.Load(ctx, r.account.Name)
	switch {
	case err == nil:
		policy = *stored
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("load policy: %w", err)
	}
	if policy.Interval == 0 {
		policy.Interval = r.defaults.Interval
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	r.policy = policy
	r.policyLoaded = true
	r.mu.Unlock()
	return nil
}

// RunCycle runs one pass: session, listing, classification, acceptance,
// confirmation. Failures of single offers or confirmations are recorded in
// the report; the returned error is for steps that failed as a whole.
func (r *Runner) RunCycle(ctx context.Context) (*CycleReport, error) {
	if err := r.loadPolicy(ctx); err != nil {
		return nil, err
	}

	report := &CycleReport{
		RunID:      uuid.NewString(),
		Started:    r.now(),
		Classified: map[classifier.Class]int{},
	}
	log := r.log.With(logger.String("run_id", report.RunID))
	r.mu.Lock()
	r.lastRunID = report.RunID
	r.mu.Unlock()
	policy := r.Policy()

	r.setState(StateCheckingSession)
	if _, err := r.deps.Session.EnsureValid(ctx); err != nil {
		r.countError(ctx)
		return report, r.cycleFailed(log, "session", err)
	}

	r.setState(StateListingTrades)
	offers, err := withReauth(ctx, r, r.deps.Trades.ActiveOffers)
	if err != nil {
		r.countError(ctx)
		return report, r.cycleFailed(log, "list trades", err)
	}

	r.setState(StateClassifying)
	eligible := make([]*tradeoffer.TradeOffer, 0)
	handled := map[uint64]struct{}{}
	for _, offer := range offers.Received {
		if offer.State != tradeoffer.StateActive || !offer.IsIncoming() {
			continue
		}
		if _, ok := handled[offer.TradeOfferID]; ok {
			continue
		}
		class := classifier.Classify(offer, policy.AllowRules)
		report.Classified[class]++
		if !classifier.Eligible(class, policy.classifierPolicy()) {
			log.Debug("offer left for operator",
				logger.Uint64("offer_id", offer.TradeOfferID),
				logger.String("class", class.String()),
			)
			continue
		}
		handled[offer.TradeOfferID] = struct{}{}
		eligible = append(eligible, offer)
	}

	r.setState(StateAccepting)
	pending := append([]uint64(nil), policy.PendingTrades...)
	for _, offer := range eligible {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		offer := offer
		res, err := withReauth(ctx, r, func(ctx context.Context) (*tradeoffer.AcceptResult, error) {
			return r.deps.Trades.Accept(ctx, offer)
		})
		if err != nil {
			log.Warn("accept failed", logger.Uint64("offer_id", offer.TradeOfferID), logger.Error(err))
			report.Errors = append(report.Errors, fmt.Errorf("accept %d: %w", offer.TradeOfferID, err))
			continue
		}
		log.Info("offer accepted", logger.Uint64("offer_id", offer.TradeOfferID))
		report.Accepted = append(report.Accepted, offer.TradeOfferID)
		if res.NeedsMobileConfirmation {
			pending = append(pending, offer.TradeOfferID)
		}
	}

	r.setState(StateConfirming)
	var stepErr error
	if pred, ok := confirmPredicate(policy, pending, offers.Sent); ok {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		res, err := withReauth(ctx, r, func(ctx context.Context) (*confirmation.Result, error) {
			return r.deps.Confirmations.ApproveAll(ctx, pred)
		})
		if err != nil {
			stepErr = fmt.Errorf("confirm: %w", err)
		} else {
			report.Confirmed = len(res.Succeeded)
			for _, o := range res.Failed {
				report.Errors = append(report.Errors, fmt.Errorf("confirm %s: %w", o.Confirmation.ID, o.Err))
			}
			pending = withoutConfirmed(pending, res.Succeeded)
		}
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	report.Finished = r.now()
	policy.PendingTrades = trimPending(pending)
	policy.Counters.Accepted += len(report.Accepted)
	policy.Counters.Confirmed += report.Confirmed
	policy.Counters.Errors += len(report.Errors)
	if stepErr != nil {
		policy.Counters.Errors++
	}
	policy.Counters.LastCheck = report.Finished

	if err := r.deps.Policies.Save(ctx, r.account.Name, &policy); err != nil {
		stepErr = multierr.Append(stepErr, fmt.Errorf("save policy: %w", err))
	} else {
		r.mu.Lock()
		r.policy = policy
		r.mu.Unlock()
	}

	log.Info("cycle finished",
		logger.Int("accepted", len(report.Accepted)),
		logger.Int("confirmed", report.Confirmed),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("took", report.Finished.Sub(report.Started)),
	)
	if stepErr != nil {
		return report, r.cycleFailed(log, "finish", stepErr)
	}
	return report, nil
}

// countError persists the error counter of a cycle that ended early. A
// stopped cycle writes nothing.
func (r *Runner) countError(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	policy := r.Policy()
	policy.Counters.Errors++
	policy.Counters.LastCheck = r.now()
	if err := r.deps.Policies.Save(ctx, r.account.Name, &policy); err != nil {
		r.log.Warn("save policy failed", logger.Error(err))
		return
	}
	r.mu.Lock()
	r.policy = policy
	r.mu.Unlock()
}

func (r *Runner) cycleFailed(log logger.Logger, step string, err error) error {
	r.setState(StateError)
	if !errors.Is(err, context.Canceled) {
		log.Warn("cycle step failed", logger.String("step", step), logger.Error(err))
	}
	return fmt.Errorf("%s: %w", step, err)
}

// recordFailure counts a failed cycle. It returns an error when the account
// gets suspended.
func (r *Runner) recordFailure(ctx context.Context, err error) error {
	r.mu.Lock()
	r.consecutive++
	r.lastErr = err
	count := r.consecutive
	if !errors.Is(err, session.ErrNeedsReauth) && (r.maxErrors <= 0 || count < r.maxErrors) {
		r.mu.Unlock()
		if count == r.notifyAfter {
			r.deps.Notifier.Notify(ctx, r.account.Name, notify.NewEvent(notify.EventRepeatedErrors,
				"%d consecutive failed cycles, last: %v", count, err))
		}
		return nil
	}
	r.state = StateSuspended
	r.mu.Unlock()

	r.log.Error("automation suspended", logger.Int("consecutive_errors", count), logger.Error(err))
	// the session manager reports an expired credential itself
	if !errors.Is(err, session.ErrNeedsReauth) {
		r.deps.Notifier.Notify(ctx, r.account.Name, notify.NewEvent(notify.EventSuspended,
			"removed from automation after %d consecutive failed cycles, last: %v", count, err))
	}
	return fmt.Errorf("%w: %w", ErrSuspended, err)
}

func (r *Runner) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consecutive > 0 {
		r.log.Info("errors reset after successful cycle", logger.Int("previous", r.consecutive))
	}
	r.consecutive = 0
	r.lastErr = nil
}

// Snapshot is a read-only view for status pages.
type Snapshot struct {
	Name              string         `json:"name"`
	State             State          `json:"state"`
	Counters          Counters       `json:"counters"`
	PendingTrades     int            `json:"pending_trades"`
	ConsecutiveErrors int            `json:"consecutive_errors"`
	LastError         string         `json:"last_error,omitempty"`
	LastRunID         string         `json:"last_run_id,omitempty"`
	Session           session.Status `json:"session"`
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	s := Snapshot{
		Name:              r.account.Name,
		State:             r.state,
		Counters:          r.policy.Counters,
		PendingTrades:     len(r.policy.PendingTrades),
		ConsecutiveErrors: r.consecutive,
		LastRunID:         r.lastRunID,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	r.mu.Unlock()
	s.Session = r.deps.Session.Status()
	return s
}

// withReauth runs step and, when the remote rejected the session, refreshes
// it and runs step once more. A second rejection counts as transient.
func withReauth[T any](ctx context.Context, r *Runner, step func(context.Context) (T, error)) (T, error) {
	v, err := step(ctx)
	if err == nil || !errors.Is(err, netutil.ErrAuthRejected) {
		return v, err
	}

	r.log.Info("session rejected by remote, refreshing", logger.Error(err))
	r.deps.Session.Invalidate()
	if _, err := r.deps.Session.EnsureValid(ctx); err != nil {
		var zero T
		return zero, err
	}
	v, err = step(ctx)
	if err != nil && errors.Is(err, netutil.ErrAuthRejected) {
		return v, fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}
	return v, err
}

func confirmPredicate(policy Policy, pending []uint64, sent []*tradeoffer.TradeOffer) (confirmation.Predicate, bool) {
	var preds []confirmation.Predicate
	if policy.AutoConfirmTrades {
		ids := append([]uint64(nil), pending...)
		for _, offer := range sent {
			if offer.State == tradeoffer.StateCreatedNeedsConfirmation {
				ids = append(ids, offer.TradeOfferID)
			}
		}
		if len(ids) != 0 {
			preds = append(preds, confirmation.ForTrades(ids))
		}
	}
	if policy.AutoConfirmMarket {
		preds = append(preds, confirmation.MarketOnly())
	}
	if len(preds) == 0 {
		return nil, false
	}
	return confirmation.Or(preds...), true
}

func withoutConfirmed(pending []uint64, done []confirmation.Outcome) []uint64 {
	confirmed := make(map[uint64]struct{}, len(done))
	for _, o := range done {
		if id, ok := o.Confirmation.LinkedID(); ok {
			confirmed[id] = struct{}{}
		}
	}
	out := pending[:0]
	for _, id := range pending {
		if _, ok := confirmed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func trimPending(pending []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(pending))
	out := make([]uint64, 0, len(pending))
	for _, id := range pending {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) > maxPendingTrades {
		out = out[len(out)-maxPendingTrades:]
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
