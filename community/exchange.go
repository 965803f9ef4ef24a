package community

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/steamid"
)

// Exchanger turns a refresh token into web session cookies for every Steam
// domain listed by finalizelogin.
type Exchanger struct {
	client      netutil.Doer
	log         logger.Logger
	finalizeUrl string
	retryDelay  time.Duration
	now         func() time.Time
}

func NewExchanger(client netutil.Doer, log logger.Logger) *Exchanger {
	return &Exchanger{
		client:      client,
		log:         log.With(logger.Component("exchanger")),
		finalizeUrl: finalizeLoginUrl,
		retryDelay:  netutil.DefaultBackoff,
		now:         time.Now,
	}
}

// SetFinalizeURL points the exchanger at another login host.
func (e *Exchanger) SetFinalizeURL(u string) {
	e.finalizeUrl = u
}

// Exchange runs finalizelogin and then every transfer it returns. The result
// is all-or-nothing: a failed transfer fails the whole exchange.
func (e *Exchanger) Exchange(ctx context.Context, refreshToken string, steamID steamid.SteamId) (*WebSession, error) {
	if exp, ok := TokenExpiry(refreshToken); ok && !exp.After(e.now()) {
		return nil, fmt.Errorf("%w: refresh token expired at %s", ErrExpiredRefreshCredential, exp.Format(time.RFC3339))
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	var fin *finalizeLoginRes
	err = netutil.Retry(ctx, netutil.DefaultAttempts, e.retryDelay, func(ctx context.Context) (err error) {
		fin, err = e.finalize(ctx, refreshToken, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if fin.SteamID != "" {
		id, err := steamid.Parse(fin.SteamID)
		if err != nil {
			return nil, fmt.Errorf("%w: steamID %q", ErrUnexpectedResponse, fin.SteamID)
		}
		steamID = id
	}

	tokens := make(map[string]string, len(fin.TransferInfo))
	for _, transfer := range fin.TransferInfo {
		domain, token, err := e.transferWithRetry(ctx, transfer, steamID)
		if err != nil {
			return nil, fmt.Errorf("transfer %s: %w", transfer.URL, err)
		}
		tokens[domain] = token
	}

	e.log.Debug("web session exchanged", logger.Int("domains", len(tokens)))
	return &WebSession{SteamID: steamID, SessionID: sessionID, Tokens: tokens}, nil
}

func (e *Exchanger) finalize(ctx context.Context, refreshToken, sessionID string) (*finalizeLoginRes, error) {
	values := url.Values{
		"nonce":     {refreshToken},
		"sessionid": {sessionID},
		"redir":     {loginRedirectUrl},
	}
	request, err := netutil.NewPostForm(ctx, e.finalizeUrl, values)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Origin", baseUrl)
	request.Header.Set("Referer", baseUrl+"/")

	response, err := e.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if err := netutil.CheckStatus(response); err != nil {
		return nil, err
	}
	resBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}

	var res finalizeLoginRes
	if err := json.Unmarshal(resBytes, &res); err != nil {
		return nil, fmt.Errorf("%w: finalizelogin: %v", ErrUnexpectedResponse, err)
	}
	if res.Error != 0 {
		return nil, resultError("finalizelogin error", res.Error)
	}
	if len(res.TransferInfo) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, ErrMissingTransferInfo)
	}
	return &res, nil
}

func (e *Exchanger) transferWithRetry(ctx context.Context, transfer Transfer, steamID steamid.SteamId) (domain, token string, err error) {
	err = netutil.Retry(ctx, transferAttempts, e.retryDelay, func(ctx context.Context) (err error) {
		domain, token, err = e.transfer(ctx, transfer, steamID)
		if err != nil {
			e.log.Debug("transfer attempt failed", logger.String("url", transfer.URL), logger.Error(err))
		}
		return err
	})
	return domain, token, err
}

func (e *Exchanger) transfer(ctx context.Context, transfer Transfer, steamID steamid.SteamId) (string, string, error) {
	target, err := url.Parse(transfer.URL)
	if err != nil || target.Host == "" {
		return "", "", fmt.Errorf("%w: transfer url %q", ErrUnexpectedResponse, transfer.URL)
	}

	values := url.Values{"steamID": {steamID.ToString()}}
	for k, v := range transfer.Params {
		values.Set(k, v)
	}
	request, err := netutil.NewPostForm(ctx, transfer.URL, values)
	if err != nil {
		return "", "", err
	}

	response, err := e.client.Do(request)
	if err != nil {
		return "", "", err
	}
	defer response.Body.Close()
	if err := netutil.CheckStatus(response); err != nil {
		return "", "", err
	}
	resBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}

	var res transferRes
	if len(resBytes) != 0 {
		if err := json.Unmarshal(resBytes, &res); err != nil {
			return "", "", fmt.Errorf("%w: transfer: %v", ErrUnexpectedResponse, err)
		}
	}
	if res.Result != 0 && res.Result != eresultOK {
		return "", "", resultError("transfer result", res.Result)
	}
	if res.RtExpiry != 0 && res.RtExpiry <= e.now().Unix() {
		return "", "", fmt.Errorf("%w: rtExpiry %d", ErrExpiredRefreshCredential, res.RtExpiry)
	}

	token := loginCookie(response)
	if token == "" {
		return "", "", fmt.Errorf("%w: %w", ErrUnexpectedResponse, ErrMissingLoginCookie)
	}
	return target.Host, token, nil
}

func loginCookie(response *http.Response) string {
	for _, cookie := range response.Cookies() {
		if cookie.Name == CookieSteamLoginSecure && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}
