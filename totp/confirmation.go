package totp

import (
	"errors"
	"time"

	authenticator "github.com/bbqtd/go-steam-authenticator"
)

// Confirmation tags understood by mobileconf.
const (
	TagAllow   = "allow"
	TagCancel  = "cancel"
	TagList    = "conf"
	TagDetails = "details"
)

var ErrUnknownTag = errors.New("unknown confirmation tag")

// ConfirmationKey signs tag at time t with the identity secret.
func ConfirmationKey(identitySecret string, tag string, t time.Time) (string, error) {
	if _, err := decodeSecret(identitySecret); err != nil {
		return "", err
	}
	timer := func() uint64 {
		return uint64(t.Unix())
	}
	switch tag {
	case TagAllow:
		return authenticator.GenerateAcceptTradeCode(identitySecret, timer)
	case TagCancel:
		return authenticator.GenerateCancelCode(identitySecret, timer)
	case TagList:
		return authenticator.GenerateLoadConfirmationCode(identitySecret, timer)
	case TagDetails:
		return authenticator.GenerateTradeInfoCode(identitySecret, timer)
	default:
		return "", ErrUnknownTag
	}
}
