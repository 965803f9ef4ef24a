package automation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vuquang23/steamauto/internal/logger"
)

type worker struct {
	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor runs one goroutine per account. Accounts share nothing but the
// request gate inside their transports.
type Supervisor struct {
	log logger.Logger

	mu      sync.Mutex
	runners map[string]*Runner
	workers map[string]*worker
}

func NewSupervisor(log logger.Logger) *Supervisor {
	return &Supervisor{
		log:     log.With(logger.Component("supervisor")),
		runners: map[string]*Runner{},
		workers: map[string]*worker{},
	}
}

func (s *Supervisor) Add(r *Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := r.Account().Name
	if _, ok := s.runners[name]; ok {
		return ErrDuplicate
	}
	s.runners[name] = r
	return nil
}

func (s *Supervisor) Runner(name string) (*Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[name]
	return r, ok
}

func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.runners))
	for name := range s.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches the account's loop. The loop lives until Stop, until ctx is
// cancelled, or until the account is suspended.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[name]
	if !ok {
		return ErrUnknownAccount
	}
	if _, running := s.workers[name]; running {
		return ErrAlreadyRunning
	}
	if r.State() == StateSuspended {
		return ErrSuspended
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &worker{runner: r, cancel: cancel, done: make(chan struct{})}
	s.workers[name] = w
	go func() {
		defer close(w.done)
		defer cancel()
		if err := r.Run(wctx); err != nil {
			s.log.Error("account loop ended", logger.Account(name), logger.Error(err))
		}
		s.mu.Lock()
		if s.workers[name] == w {
			delete(s.workers, name)
		}
		s.mu.Unlock()
	}()
	return nil
}

// Stop cancels the account's loop and waits for it to return.
func (s *Supervisor) Stop(name string) error {
	s.mu.Lock()
	if _, ok := s.runners[name]; !ok {
		s.mu.Unlock()
		return ErrUnknownAccount
	}
	w, running := s.workers[name]
	s.mu.Unlock()
	if !running {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}

// Resume clears a suspension and starts the account again.
func (s *Supervisor) Resume(ctx context.Context, name string) error {
	r, ok := s.Runner(name)
	if !ok {
		return ErrUnknownAccount
	}
	r.Resume()
	return s.Start(ctx, name)
}

// StartAll starts every registered account. Accounts already running or
// suspended are skipped.
func (s *Supervisor) StartAll(ctx context.Context) {
	for _, name := range s.Names() {
		err := s.Start(ctx, name)
		switch {
		case err == nil, errors.Is(err, ErrAlreadyRunning):
		default:
			s.log.Warn("account not started", logger.Account(name), logger.Error(err))
		}
	}
}

func (s *Supervisor) StopAll() {
	var wg sync.WaitGroup
	for _, name := range s.Names() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = s.Stop(name)
		}(name)
	}
	wg.Wait()
}

// Running reports whether the account has a live loop.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[name]
	return ok
}

func (s *Supervisor) Snapshot() []Snapshot {
	names := s.Names()
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		if r, ok := s.Runner(name); ok {
			out = append(out, r.Snapshot())
		}
	}
	return out
}
