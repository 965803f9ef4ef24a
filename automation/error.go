package automation

import "errors"

var (
	ErrSuspended       = errors.New("account automation suspended")
	ErrUnknownAccount  = errors.New("unknown account")
	ErrDuplicate       = errors.New("account already registered")
	ErrAlreadyRunning  = errors.New("account automation already running")
	ErrInvalidInterval = errors.New("check interval out of range")
)
