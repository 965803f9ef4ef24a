package community

import "github.com/vuquang23/steamauto/steamid"

// WebSession is the result of a successful exchange: one steamLoginSecure
// token per vendor domain plus a locally generated session id.
type WebSession struct {
	SteamID   steamid.SteamId
	SessionID string
	Tokens    map[string]string
}

// RenewedTokens is returned by GenerateAccessTokenForApp. RefreshToken is
// empty unless Steam rotated the credential.
type RenewedTokens struct {
	AccessToken  string
	RefreshToken string
}

type Transfer struct {
	URL    string            `json:"url"`
	Params map[string]string `json:"params"`
}

// responses

type finalizeLoginRes struct {
	SteamID      string     `json:"steamID"`
	Redir        string     `json:"redir"`
	TransferInfo []Transfer `json:"transfer_info"`
	PrimaryDom   string     `json:"primary_domain"`
	Error        int        `json:"error"`
}

type transferRes struct {
	Result   int   `json:"result"`
	RtExpiry int64 `json:"rtExpiry"`
}
