package totp

import (
	"encoding/base64"
	"errors"
	"time"

	authenticator "github.com/bbqtd/go-steam-authenticator"
)

const (
	CodeLength = 5
	Period     = 30 * time.Second
)

var ErrMalformedSecret = errors.New("malformed shared secret")

// Code is a Steam Guard login code and how long it stays valid.
type Code struct {
	Value     string
	Remaining time.Duration
}

// Generate derives the 5 character Steam Guard code for the 30 second window
// containing t.
func Generate(sharedSecret string, t time.Time) (Code, error) {
	if _, err := decodeSecret(sharedSecret); err != nil {
		return Code{}, err
	}
	unix := t.Unix()
	value, err := authenticator.GenerateAuthCode(sharedSecret, func() uint64 { return uint64(unix) })
	if err != nil {
		return Code{}, ErrMalformedSecret
	}

	period := int64(Period / time.Second)
	remaining := time.Duration(period-unix%period) * time.Second
	return Code{Value: value, Remaining: remaining}, nil
}

func GenerateTotpCode(sharedSecret string, t time.Time) (string, error) {
	code, err := Generate(sharedSecret, t)
	if err != nil {
		return "", err
	}
	return code.Value, nil
}

func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrMalformedSecret
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(key) == 0 {
		return nil, ErrMalformedSecret
	}
	return key, nil
}
