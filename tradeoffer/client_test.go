package tradeoffer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/community"
	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/session"
)

type staticSession struct {
	state *session.State
}

func (s staticSession) EnsureValid(context.Context) (*session.State, error) {
	return s.state.Clone(), nil
}

const offersBody = `{"response":{
  "trade_offers_received":[{
    "tradeofferid":"4001","accountid_other":39734273,"trade_offer_state":2,"is_our_offer":false,
    "items_to_give":[],
    "items_to_receive":[{"appid":730,"contextid":"2","assetid":"11","classid":"21","instanceid":"0","amount":"1"}]
  }],
  "trade_offers_sent":[{
    "tradeofferid":"4002","accountid_other":39734274,"trade_offer_state":9,"is_our_offer":true,
    "items_to_give":[{"appid":440,"contextid":"2","assetid":"12","classid":"22","instanceid":"0","amount":"1"}],
    "confirmation_method":2
  }]
}}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	state := &session.State{
		SessionID:   "sid",
		AccessToken: "access-jwt",
		Tokens:      map[string]string{srv.Listener.Addr().String(): "cookie-token"},
	}
	c := NewClient(srv.Client(), staticSession{state}, logger.Nop(), WithAPIURL(srv.URL), WithCommunityURL(srv.URL))
	return c, srv
}

func TestActiveOffers(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GetTradeOffers/v1/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "access-jwt", q.Get("access_token"))
		assert.Equal(t, "1", q.Get("active_only"))
		assert.Equal(t, "1", q.Get("get_sent_offers"))
		assert.Equal(t, "1", q.Get("get_received_offers"))
		fmt.Fprint(w, offersBody)
	})

	res, err := c.ActiveOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Received, 1)
	require.Len(t, res.Sent, 1)

	in := res.Received[0]
	assert.Equal(t, uint64(4001), in.TradeOfferID)
	assert.Equal(t, StateActive, in.State)
	assert.True(t, in.IsIncoming())
	assert.Equal(t, "76561198000000001", in.Partner().ToString())
	require.Len(t, in.ToReceive, 1)
	assert.Equal(t, "730_2_11", in.ToReceive[0].Key())

	out := res.Sent[0]
	assert.Equal(t, StateCreatedNeedsConfirmation, out.State)
	assert.Equal(t, ConfirmationMethodMobile, out.ConfirmationMethod)
	assert.Equal(t, "CreatedNeedsConfirmation", out.State.String())
}

func TestGetOffersUsesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "KEY", r.URL.Query().Get("key"))
		assert.Empty(t, r.URL.Query().Get("access_token"))
		fmt.Fprint(w, offersBody)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), staticSession{&session.State{}}, logger.Nop(), WithAPIURL(srv.URL), WithAPIKey("KEY"))
	_, err := c.GetOffers(context.Background(), GetOffersOptions{Received: true})
	require.NoError(t, err)
}

func TestGetOffersRejectsEmptySelection(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.GetOffers(context.Background(), GetOffersOptions{})
	assert.Error(t, err)
}

func TestGetOffersAuthRejected(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.ActiveOffers(context.Background())
	assert.ErrorIs(t, err, netutil.ErrAuthRejected)
}

func TestGetOffersRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, offersBody)
	})
	res, err := c.GetOffersWithRetry(context.Background(), GetOffersOptions{Received: true}, 3, 0)
	require.NoError(t, err)
	assert.Len(t, res.Received, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOfferEmpty(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{}}`)
	})
	_, err := c.GetOffer(context.Background(), 1)
	var steamErr *SteamError
	assert.ErrorAs(t, err, &steamErr)
}

func TestAccept(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tradeoffer/4001/accept", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sid", r.PostForm.Get("sessionid"))
		assert.Equal(t, "4001", r.PostForm.Get("tradeofferid"))
		assert.Equal(t, "76561198000000001", r.PostForm.Get("partner"))
		cookie, err := r.Cookie(community.CookieSteamLoginSecure)
		require.NoError(t, err)
		assert.Equal(t, "cookie-token", cookie.Value)
		fmt.Fprint(w, `{"tradeid":"9001","needs_mobile_confirmation":true}`)
	})

	res, err := c.Accept(context.Background(), &TradeOffer{TradeOfferID: 4001, OtherAccountID: 39734273})
	require.NoError(t, err)
	assert.Equal(t, uint64(9001), res.TradeID)
	assert.True(t, res.NeedsMobileConfirmation)
}

func TestAcceptStrError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"strError":"There was an error accepting this trade offer. (16)"}`)
	})

	_, err := c.Accept(context.Background(), &TradeOffer{TradeOfferID: 1})
	var steamErr *SteamError
	require.ErrorAs(t, err, &steamErr)
	assert.False(t, netutil.IsTransient(err))
}

func TestDecline(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/DeclineTradeOffer/v1/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "77", r.PostForm.Get("tradeofferid"))
	})
	require.NoError(t, c.Decline(context.Background(), 77))
}

func TestCancel(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/CancelTradeOffer/v1/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "78", r.PostForm.Get("tradeofferid"))
	})
	require.NoError(t, c.Cancel(context.Background(), 78))
}
