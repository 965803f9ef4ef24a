package totp

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vuquang23/steamauto/steamid"
)

var ErrIncompleteGuard = errors.New("guard bundle is missing secrets")

// GuardBundle is the Steam Guard material exported by mobile authenticators
// (.maFile). The secrets are never printed.
type GuardBundle struct {
	SharedSecret   string          `json:"shared_secret"`
	IdentitySecret string          `json:"identity_secret"`
	DeviceID       string          `json:"device_id"`
	AccountName    string          `json:"account_name"`
	SteamID        steamid.SteamId `json:"-"`
}

type maFile struct {
	GuardBundle
	SteamID json.Number `json:"steamid"`
	Session struct {
		SteamID json.Number `json:"SteamID"`
	} `json:"Session"`
}

func LoadGuard(path string) (*GuardBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guard file: %w", err)
	}
	return ParseGuard(data)
}

func ParseGuard(data []byte) (*GuardBundle, error) {
	var f maFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse guard file: %w", err)
	}
	bundle := f.GuardBundle

	raw := f.Session.SteamID
	if raw == "" {
		raw = f.SteamID
	}
	if raw != "" {
		id, err := steamid.Parse(raw.String())
		if err != nil {
			return nil, fmt.Errorf("parse guard steam id: %w", err)
		}
		bundle.SteamID = id
	}

	if bundle.SharedSecret == "" || bundle.IdentitySecret == "" {
		return nil, ErrIncompleteGuard
	}
	if _, err := decodeSecret(bundle.SharedSecret); err != nil {
		return nil, err
	}
	if _, err := decodeSecret(bundle.IdentitySecret); err != nil {
		return nil, err
	}
	if bundle.DeviceID == "" && !bundle.SteamID.IsZero() {
		bundle.DeviceID = DeviceID(bundle.SteamID)
	}
	return &bundle, nil
}

func (g *GuardBundle) String() string {
	return "GuardBundle{account=" + g.AccountName + ", steamid=" + strconv.FormatUint(uint64(g.SteamID), 10) + "}"
}

// DeviceID derives an android device id from the steam id. It differs from
// the id the official app generates, but mobileconf accepts it.
func DeviceID(id steamid.SteamId) string {
	sum := sha1.Sum([]byte(id.ToString()))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("android:%s-%s-%s-%s-%s", h[:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
