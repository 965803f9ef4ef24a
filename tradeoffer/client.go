package tradeoffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/session"
)

type APIKey string

// Session supplies cookies for steamcommunity.com and the access token for
// the Web API.
type Session interface {
	EnsureValid(ctx context.Context) (*session.State, error)
}

type Client struct {
	client       netutil.Doer
	session      Session
	key          APIKey
	apiUrl       string
	communityUrl string
	log          logger.Logger
}

type Option func(*Client)

// WithAPIKey authenticates Web API calls with a key instead of the session
// access token.
func WithAPIKey(key APIKey) Option {
	return func(c *Client) { c.key = key }
}

func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiUrl = strings.TrimRight(u, "/") }
}

func WithCommunityURL(u string) Option {
	return func(c *Client) { c.communityUrl = strings.TrimRight(u, "/") }
}

func NewClient(client netutil.Doer, sess Session, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		client:       client,
		session:      sess,
		apiUrl:       apiUrl,
		communityUrl: communityUrl,
		log:          log.With(logger.Component("tradeoffer")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetOffer(ctx context.Context, offerId uint64) (*TradeOfferResult, error) {
	params := map[string]string{
		"tradeofferid": strconv.FormatUint(offerId, 10),
		"language":     "en_us",
	}
	t := new(struct {
		Response *TradeOfferResult
	})
	if err := c.callAPI(ctx, "GetTradeOffer", 1, params, t); err != nil {
		return nil, err
	}
	if t.Response == nil || t.Response.Offer == nil {
		return nil, newSteamErrorf("steam returned empty offer result")
	}
	return t.Response, nil
}

func (c *Client) GetOffers(ctx context.Context, opts GetOffersOptions) (*TradeOffersResult, error) {
	if !opts.Sent && !opts.Received {
		return nil, errors.New("sent and received can't be both false")
	}

	params := map[string]string{}
	if opts.Sent {
		params["get_sent_offers"] = "1"
	}
	if opts.Received {
		params["get_received_offers"] = "1"
	}
	if opts.Descriptions {
		params["get_descriptions"] = "1"
		params["language"] = "en_us"
	}
	if opts.ActiveOnly {
		params["active_only"] = "1"
	}
	if opts.HistoricalOnly {
		params["historical_only"] = "1"
	}
	if opts.TimeHistoricalCutoff != nil {
		params["time_historical_cutoff"] = strconv.FormatUint(uint64(*opts.TimeHistoricalCutoff), 10)
	}
	t := new(struct {
		Response *TradeOffersResult
	})
	if err := c.callAPI(ctx, "GetTradeOffers", 1, params, t); err != nil {
		return nil, err
	}
	if t.Response == nil {
		return nil, newSteamErrorf("steam returned empty offers result")
	}
	return t.Response, nil
}

// GetOffersWithRetry retries transient failures only.
func (c *Client) GetOffersWithRetry(ctx context.Context, opts GetOffersOptions, retryCount int, retryDelay time.Duration) (*TradeOffersResult, error) {
	var res *TradeOffersResult
	return res, netutil.Retry(ctx, retryCount, retryDelay, func(ctx context.Context) (err error) {
		res, err = c.GetOffers(ctx, opts)
		return err
	})
}

// ActiveOffers lists active offers in both directions.
func (c *Client) ActiveOffers(ctx context.Context) (*TradeOffersResult, error) {
	return c.GetOffersWithRetry(ctx, GetOffersOptions{
		Sent:       true,
		Received:   true,
		ActiveOnly: true,
	}, netutil.DefaultAttempts, netutil.DefaultBackoff)
}

// action() is used by Decline() and Cancel()
// Steam only return success and error fields for malformed requests,
// hence client shall use GetOffer() to check action result
func (c *Client) action(ctx context.Context, method string, version uint, offerId uint64) error {
	params := map[string]string{
		"tradeofferid": strconv.FormatUint(offerId, 10),
	}
	values, err := c.authParams(ctx, params)
	if err != nil {
		return err
	}
	req, err := netutil.NewPostForm(ctx, c.methodUrl(method, version), values)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := netutil.CheckStatus(resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) Decline(ctx context.Context, offerId uint64) error {
	return c.action(ctx, "DeclineTradeOffer", 1, offerId)
}

func (c *Client) Cancel(ctx context.Context, offerId uint64) error {
	return c.action(ctx, "CancelTradeOffer", 1, offerId)
}

// Accept a received trade offer. Steam may still require a mobile
// confirmation; AcceptResult says so.
func (c *Client) Accept(ctx context.Context, offer *TradeOffer) (*AcceptResult, error) {
	state, err := c.session.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	baseurl := fmt.Sprintf("%s/tradeoffer/%d/", c.communityUrl, offer.TradeOfferID)
	req, err := netutil.NewPostForm(ctx, baseurl+"accept", netutil.ToUrlValues(map[string]string{
		"sessionid":    state.SessionID,
		"serverid":     "1",
		"tradeofferid": strconv.FormatUint(offer.TradeOfferID, 10),
		"partner":      offer.Partner().ToString(),
		"captcha":      "",
	}))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Referer", baseurl)
	state.ApplyCookies(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, netutil.CheckStatus(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}

	t := new(struct {
		AcceptResult
		StrError string `json:"strError"`
	})
	if err := json.Unmarshal(body, t); err != nil {
		if statusErr := netutil.CheckStatus(resp); statusErr != nil {
			return nil, fmt.Errorf("accept: %w", statusErr)
		}
		return nil, fmt.Errorf("%w: accept: %v", netutil.ErrUnexpectedResponse, err)
	}
	if t.StrError != "" {
		return nil, newSteamErrorf("accept error: %v", t.StrError)
	}
	if err := netutil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}

	c.log.Debug("trade offer accepted",
		logger.Uint64("offer_id", offer.TradeOfferID),
		logger.Bool("needs_mobile_confirmation", t.NeedsMobileConfirmation),
	)
	return &t.AcceptResult, nil
}

func (c *Client) methodUrl(method string, version uint) string {
	return fmt.Sprintf("%s/%s/v%d/", c.apiUrl, method, version)
}

// authParams adds the API key, or the session access token when no key is
// configured.
func (c *Client) authParams(ctx context.Context, params map[string]string) (url.Values, error) {
	values := netutil.ToUrlValues(params)
	if c.key != "" {
		values.Set("key", string(c.key))
		return values, nil
	}
	state, err := c.session.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}
	if state.AccessToken == "" {
		return nil, fmt.Errorf("%w: session has no access token", netutil.ErrAuthRejected)
	}
	values.Set("access_token", state.AccessToken)
	return values, nil
}

func (c *Client) callAPI(ctx context.Context, method string, version uint, params map[string]string, out interface{}) error {
	values, err := c.authParams(ctx, params)
	if err != nil {
		return err
	}
	req, err := netutil.NewGet(ctx, c.methodUrl(method, version), values)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := netutil.CheckStatus(resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%w: %s: %v", netutil.ErrUnexpectedResponse, method, err)
	}
	return nil
}
