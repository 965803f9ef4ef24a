package confirmation

import (
	"errors"

	"github.com/vuquang23/steamauto/netutil"
)

var (
	ErrCannotFindConfirmations = errors.New("unable to find confirmations")
	ErrCannotFindOffer         = errors.New("unable to find trade offer in confirmation details")
	ErrConfirmationNotFound    = errors.New("no pending confirmation for id")
	ErrConfirmationFailed      = errors.New("confirmation was not accepted by steam")
	ErrInvalidGuard            = errors.New("guard file produces incorrect codes")
	ErrAuthRejected            = netutil.ErrAuthRejected
)
