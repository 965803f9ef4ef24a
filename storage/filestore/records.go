package filestore

import (
	"context"

	"github.com/vuquang23/steamauto/automation"
	"github.com/vuquang23/steamauto/session"
)

type SessionStore struct {
	s *Store
}

func (ss *SessionStore) Load(_ context.Context, account string) (*session.State, error) {
	var st session.State
	if err := ss.s.read(sessionsDir, account, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (ss *SessionStore) Save(_ context.Context, account string, st *session.State) error {
	return ss.s.write(sessionsDir, account, st, true)
}

type PolicyStore struct {
	s *Store
}

func (ps *PolicyStore) Load(_ context.Context, account string) (*automation.Policy, error) {
	var p automation.Policy
	if err := ps.s.read(policiesDir, account, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *PolicyStore) Save(_ context.Context, account string, p *automation.Policy) error {
	return ps.s.write(policiesDir, account, p, false)
}
