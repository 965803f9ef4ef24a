package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vuquang23/steamauto/community"
	"github.com/vuquang23/steamauto/steamid"
)

// State is the persisted web session of one account.
type State struct {
	SteamID      steamid.SteamId   `json:"steam_id,string"`
	SessionID    string            `json:"session_id"`
	Tokens       map[string]string `json:"tokens"`
	RefreshToken string            `json:"refresh_token"`
	AccessToken  string            `json:"access_token,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at"`
	RefreshedAt  time.Time         `json:"refreshed_at"`
}

// Expired reports whether the state cannot be used at now. skew is subtracted
// from ExpiresAt so a request does not race the expiry.
func (s *State) Expired(now time.Time, skew time.Duration) bool {
	if s == nil || len(s.Tokens) == 0 || s.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(s.ExpiresAt.Add(-skew))
}

// Token returns the steamLoginSecure value for host.
func (s *State) Token(host string) (string, bool) {
	if s == nil {
		return "", false
	}
	token, ok := s.Tokens[host]
	return token, ok
}

// Cookies renders the cookies Steam expects on host.
func (s *State) Cookies(host string) []*http.Cookie {
	if s == nil {
		return nil
	}
	cookies := []*http.Cookie{{Name: community.CookieSessionID, Value: s.SessionID}}
	if token, ok := s.Token(host); ok {
		cookies = append(cookies, &http.Cookie{Name: community.CookieSteamLoginSecure, Value: token})
	}
	return cookies
}

// ApplyCookies adds the session cookies for the request host. It returns false
// when the session holds no login token for that host.
func (s *State) ApplyCookies(req *http.Request) bool {
	_, ok := s.Token(req.URL.Host)
	for _, cookie := range s.Cookies(req.URL.Host) {
		req.AddCookie(cookie)
	}
	return ok
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Tokens = make(map[string]string, len(s.Tokens))
	for k, v := range s.Tokens {
		c.Tokens[k] = v
	}
	return &c
}

func (s *State) String() string {
	if s == nil {
		return "session(<nil>)"
	}
	return fmt.Sprintf("session(steamid=%s domains=%d expires=%s)", s.SteamID, len(s.Tokens), s.ExpiresAt.Format(time.RFC3339))
}

func newState(ws *community.WebSession, refreshToken string, now time.Time) *State {
	st := &State{
		SteamID:      ws.SteamID,
		SessionID:    ws.SessionID,
		Tokens:       make(map[string]string, len(ws.Tokens)),
		RefreshToken: refreshToken,
		RefreshedAt:  now,
	}
	for domain, token := range ws.Tokens {
		st.Tokens[domain] = token
		access := community.AccessToken(token)
		if exp, ok := community.TokenExpiry(access); ok && (st.ExpiresAt.IsZero() || exp.Before(st.ExpiresAt)) {
			st.ExpiresAt = exp
		}
		if st.AccessToken == "" || domain == community.CommunityHost {
			st.AccessToken = access
		}
	}
	if st.ExpiresAt.IsZero() {
		st.ExpiresAt = now.Add(defaultLifetime)
	}
	return st
}
