package session

import "errors"

var (
	// ErrNeedsReauth is returned once the refresh credential was rejected. It
	// stays until the operator supplies a new credential with Reset.
	ErrNeedsReauth         = errors.New("account needs re-authentication")
	ErrNoRefreshCredential = errors.New("no refresh credential")
	ErrPersist             = errors.New("persist session")
)
