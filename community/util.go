package community

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func GenerateSessionID() (string, error) {
	bytes := make([]byte, 12)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// TokenExpiry reads the exp claim of a Steam JWT without verifying its
// signature. ok is false when the token is not a parseable JWT.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// AccessToken extracts the JWT from a steamLoginSecure cookie value, which is
// "<steamid>||<jwt>", usually url-encoded.
func AccessToken(cookieValue string) string {
	v, err := url.QueryUnescape(cookieValue)
	if err != nil {
		v = cookieValue
	}
	if i := strings.Index(v, "||"); i >= 0 {
		return v[i+2:]
	}
	return v
}
