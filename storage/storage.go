// Package storage holds what the persistence backends share. The interfaces
// for sessions and policies are declared by their consumers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned by Load when nothing was saved for the account.
	ErrNotFound       = errors.New("record not found")
	ErrInvalidAccount = errors.New("invalid account name")
)

// ProxyProvider resolves the outbound proxy of an account. ok is false when
// the account connects directly.
type ProxyProvider interface {
	Proxy(ctx context.Context, account string) (proxy string, ok bool, err error)
}

type NoProxy struct{}

func (NoProxy) Proxy(context.Context, string) (string, bool, error) {
	return "", false, nil
}

var accountNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateAccount rejects names that cannot be used as a file name or key
// suffix.
func ValidateAccount(name string) error {
	if !accountNameRe.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, name)
	}
	return nil
}
