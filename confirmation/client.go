package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/totp"
)

// Session supplies the cookies for mobileconf requests.
type Session interface {
	EnsureValid(ctx context.Context) (*session.State, error)
}

type Client struct {
	client  netutil.Doer
	session Session
	guard   *totp.GuardBundle
	clock   totp.Clock
	baseUrl string
	log     logger.Logger
}

type Option func(*Client)

// WithClock sets the time source for confirmation keys. A *totp.TimeOffset
// is kept in sync by UpdateTimeOffset.
func WithClock(clock totp.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseUrl = strings.TrimRight(u, "/") }
}

func NewClient(client netutil.Doer, sess Session, guard *totp.GuardBundle, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		client:  client,
		session: sess,
		guard:   guard,
		clock:   totp.NewTimeOffset(),
		baseUrl: baseUrl,
		log:     log.With(logger.Component("confirmation"), logger.Account(guard.AccountName)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) UpdateTimeOffset(ctx context.Context) error {
	offset, ok := c.clock.(*totp.TimeOffset)
	if !ok {
		return nil
	}
	return offset.Sync(ctx, c.client)
}

// ListPending returns the confirmations waiting on this device. An empty list
// is not an error.
func (c *Client) ListPending(ctx context.Context) ([]*Confirmation, error) {
	resBytes, err := c.call(ctx, "getlist", totp.TagList, nil)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(resBytes, []byte(incorrectGuardText)) {
		return nil, ErrInvalidGuard
	}

	var res listRes
	if err := json.Unmarshal(resBytes, &res); err != nil {
		return nil, fmt.Errorf("%w: getlist: %v", netutil.ErrUnexpectedResponse, err)
	}
	if res.NeedAuth {
		return nil, fmt.Errorf("%w: getlist needauth", ErrAuthRejected)
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s %s", ErrCannotFindConfirmations, res.Message, res.Detail)
	}
	if res.Conf == nil {
		return []*Confirmation{}, nil
	}
	return res.Conf, nil
}

// Find returns the pending confirmation linked to a trade offer or listing.
func (c *Client) Find(ctx context.Context, linkedID uint64) (*Confirmation, error) {
	confs, err := c.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	for _, conf := range confs {
		if id, ok := conf.LinkedID(); ok && id == linkedID {
			return conf, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrConfirmationNotFound, linkedID)
}

// OfferID reads the trade offer id from the confirmation details page.
func (c *Client) OfferID(ctx context.Context, conf *Confirmation) (uint64, error) {
	resBytes, err := c.call(ctx, "detailspage/"+url.PathEscape(conf.ID), totp.TagDetails, nil)
	if err != nil {
		return 0, err
	}
	page := resBytes
	if trimmed := bytes.TrimSpace(resBytes); len(trimmed) != 0 && trimmed[0] == '{' {
		var res detailsRes
		if err := json.Unmarshal(trimmed, &res); err != nil {
			return 0, fmt.Errorf("%w: details: %v", netutil.ErrUnexpectedResponse, err)
		}
		page = []byte(res.HTML)
	}
	return parseOfferID(page)
}

func parseOfferID(page []byte) (uint64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return 0, err
	}

	offer := doc.Find(".tradeoffer").First()
	value, ok := offer.Attr("id")
	if !ok {
		return 0, ErrCannotFindOffer
	}
	strs := strings.Split(value, "_")
	if len(strs) < 2 {
		return 0, ErrCannotFindOffer
	}

	offerID, err := strconv.ParseUint(strs[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCannotFindOffer, err)
	}
	return offerID, nil
}

func (c *Client) Approve(ctx context.Context, conf *Confirmation) error {
	return c.answer(ctx, conf, totp.TagAllow)
}

func (c *Client) Deny(ctx context.Context, conf *Confirmation) error {
	return c.answer(ctx, conf, totp.TagCancel)
}

// ApproveAll approves every pending confirmation matching pred. A failed
// approval does not stop the others; only a failed listing returns an error.
func (c *Client) ApproveAll(ctx context.Context, pred Predicate) (*Result, error) {
	confs, err := c.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, conf := range confs {
		if conf.Kind() == KindTrade && conf.CreatorID == "" {
			conf.resolve = c.creatorResolver(ctx, conf)
		}
		picked := pred(conf)
		conf.resolve = nil
		if !picked {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.Approve(ctx, conf); err != nil {
			c.log.Warn("approve failed",
				logger.String("id", conf.ID),
				logger.String("kind", conf.Kind().String()),
				logger.Error(err),
			)
			result.Failed = append(result.Failed, Outcome{Confirmation: conf, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, Outcome{Confirmation: conf})
	}

	c.log.Info("confirmations approved",
		logger.Int("succeeded", len(result.Succeeded)),
		logger.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// creatorResolver reads the linked offer id from the details page. It runs
// only if the predicate asks for the linked id.
func (c *Client) creatorResolver(ctx context.Context, conf *Confirmation) func() string {
	return func() string {
		id, err := c.OfferID(ctx, conf)
		if err != nil {
			c.log.Debug("cannot resolve trade offer of confirmation", logger.String("id", conf.ID), logger.Error(err))
			return ""
		}
		return strconv.FormatUint(id, 10)
	}
}

func (c *Client) answer(ctx context.Context, conf *Confirmation, tag string) error {
	values := url.Values{
		"op":  {tag},
		"cid": {conf.ID},
		"ck":  {conf.Nonce},
	}

	var message string
	for attempt := 1; attempt <= maxAnswerAttempts; attempt++ {
		resBytes, err := c.call(ctx, "ajaxop", tag, values)
		if err != nil {
			return err
		}
		var res answerRes
		if err := json.Unmarshal(resBytes, &res); err != nil {
			return fmt.Errorf("%w: ajaxop: %v", netutil.ErrUnexpectedResponse, err)
		}
		if res.Success {
			return nil
		}
		message = res.Message
		c.log.Debug("confirmation answer rejected",
			logger.String("id", conf.ID),
			logger.Int("attempt", attempt),
			logger.String("message", message),
		)
	}
	return fmt.Errorf("%w: %s %s: %s", ErrConfirmationFailed, tag, conf.ID, message)
}

// call signs a mobileconf request with a key for tag, generated now.
func (c *Client) call(ctx context.Context, path string, tag string, values url.Values) ([]byte, error) {
	state, err := c.session.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	key, err := totp.ConfirmationKey(c.guard.IdentitySecret, tag, now)
	if err != nil {
		return nil, err
	}

	deviceID := c.guard.DeviceID
	if deviceID == "" {
		deviceID = totp.DeviceID(c.guard.SteamID)
	}
	params := url.Values{
		"p":   {deviceID},
		"a":   {c.guard.SteamID.ToString()},
		"k":   {key},
		"t":   {strconv.FormatInt(now.Unix(), 10)},
		"m":   {"android"},
		"tag": {tag},
	}
	for k, v := range values {
		params[k] = v
	}

	request, err := netutil.NewGet(ctx, c.baseUrl+"/"+path, params)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "*/*")
	request.Header.Set("X-Requested-With", "com.valvesoftware.android.steam.community")
	state.ApplyCookies(request)

	response, err := c.client.Do(request)
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
	return resBytes, nil
}
