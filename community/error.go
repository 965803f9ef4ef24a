package community

import (
	"errors"
	"fmt"

	"github.com/vuquang23/steamauto/netutil"
)

var (
	// ErrExpiredRefreshCredential is terminal: the account needs a fresh login.
	ErrExpiredRefreshCredential = errors.New("refresh credential expired or revoked")
	ErrTransientNetwork         = netutil.ErrTransient
	ErrUnexpectedResponse       = netutil.ErrUnexpectedResponse
	ErrMissingTransferInfo      = errors.New("finalizelogin returned no transfer_info")
	ErrMissingLoginCookie       = errors.New("transfer response has no steamLoginSecure cookie")
)

func isCredentialResult(result int) bool {
	switch result {
	case eresultInvalidPassword, eresultAccessDenied, eresultNotLoggedOn, eresultExpired:
		return true
	}
	return false
}

func isTransientResult(result int) bool {
	switch result {
	case eresultFail, eresultNoConnection, eresultBusy, eresultTimeout, eresultServiceDown:
		return true
	}
	return false
}

// resultError maps a non-OK eresult to the error taxonomy.
func resultError(what string, result int) error {
	switch {
	case isCredentialResult(result):
		return fmt.Errorf("%w: %s %d", ErrExpiredRefreshCredential, what, result)
	case isTransientResult(result):
		return fmt.Errorf("%w: %s %d", ErrTransientNetwork, what, result)
	default:
		return fmt.Errorf("%w: %s %d", ErrUnexpectedResponse, what, result)
	}
}
