package confirmation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/session"
	"github.com/vuquang23/steamauto/steamid"
	"github.com/vuquang23/steamauto/totp"
)

const testIdentitySecret = "MTIzNDU2Nzg5MDEyMzQ1Njc4OTA="

type staticSession struct{}

func (staticSession) EnsureValid(context.Context) (*session.State, error) {
	return &session.State{SessionID: "sid", Tokens: map[string]string{}}, nil
}

type fakeMobileconf struct {
	mu       sync.Mutex
	confs    []*Confirmation
	rejectOp map[string]int // cid -> number of leading success=false answers
	ajaxops  map[string]int
	keys     []string
	needAuth bool
	details  string
	detailsN int
}

func (f *fakeMobileconf) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		q := r.URL.Query()
		assert.NotEmpty(t, q.Get("k"))
		assert.Equal(t, "android", q.Get("m"))
		assert.Equal(t, "76561198000000001", q.Get("a"))
		f.keys = append(f.keys, q.Get("k"))

		switch {
		case r.URL.Path == "/getlist":
			assert.Equal(t, totp.TagList, q.Get("tag"))
			if f.needAuth {
				fmt.Fprint(w, `{"success":false,"needauth":true}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "conf": f.confs})
		case r.URL.Path == "/ajaxop":
			cid := q.Get("cid")
			f.ajaxops[cid]++
			if f.rejectOp[cid] > 0 {
				f.rejectOp[cid]--
				fmt.Fprint(w, `{"success":false,"message":"expired"}`)
				return
			}
			fmt.Fprint(w, `{"success":true}`)
		case strings.HasPrefix(r.URL.Path, "/detailspage/"):
			assert.Equal(t, totp.TagDetails, q.Get("tag"))
			f.detailsN++
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "html": f.details})
		default:
			http.NotFound(w, r)
		}
	})
}

func newFake(confs ...*Confirmation) *fakeMobileconf {
	return &fakeMobileconf{confs: confs, rejectOp: map[string]int{}, ajaxops: map[string]int{}}
}

func newTestClient(t *testing.T, f *fakeMobileconf) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	guard := &totp.GuardBundle{
		IdentitySecret: testIdentitySecret,
		AccountName:    "alice",
		SteamID:        steamid.SteamId(76561198000000001),
	}
	return NewClient(srv.Client(), staticSession{}, guard, logger.Nop(), WithBaseURL(srv.URL), WithClock(totp.SystemClock{}))
}

func conf(id string, typ uint64, creator string) *Confirmation {
	return &Confirmation{ID: id, Nonce: "n" + id, Type: typ, CreatorID: creator}
}

func TestListPending(t *testing.T) {
	f := newFake(conf("1", 2, "100"), conf("2", 3, "200"), conf("3", 12, "300"), conf("4", 9, "400"))
	confs, err := newTestClient(t, f).ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, confs, 4)
	assert.Equal(t, KindTrade, confs[0].Kind())
	assert.Equal(t, KindMarketListing, confs[1].Kind())
	assert.Equal(t, KindMarketPurchase, confs[2].Kind())
	assert.Equal(t, KindUnknown, confs[3].Kind())
	id, ok := confs[0].LinkedID()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), id)
}

func TestListPendingEmpty(t *testing.T) {
	confs, err := newTestClient(t, newFake()).ListPending(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, confs)
	assert.Empty(t, confs)
}

func TestListPendingNeedAuth(t *testing.T) {
	f := newFake()
	f.needAuth = true
	_, err := newTestClient(t, f).ListPending(context.Background())
	assert.ErrorIs(t, err, netutil.ErrAuthRejected)
}

func TestApproveAllContinuesPastFailures(t *testing.T) {
	f := newFake(
		conf("1", 2, "101"), conf("2", 2, "102"), conf("3", 2, "103"),
		conf("4", 2, "104"), conf("5", 2, "105"),
	)
	f.rejectOp["2"] = 10
	f.rejectOp["4"] = 10

	result, err := newTestClient(t, f).ApproveAll(context.Background(), Any())
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 3)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "2", result.Failed[0].Confirmation.ID)
	assert.Equal(t, "4", result.Failed[1].Confirmation.ID)
	assert.ErrorIs(t, result.Failed[0].Err, ErrConfirmationFailed)
	assert.ErrorIs(t, result.Err(), ErrConfirmationFailed)

	// each failure was retried once with a fresh key
	assert.Equal(t, 2, f.ajaxops["2"])
	assert.Equal(t, 1, f.ajaxops["5"])
}

func TestApproveRetriesOnce(t *testing.T) {
	f := newFake()
	f.rejectOp["7"] = 1
	err := newTestClient(t, f).Approve(context.Background(), conf("7", 2, "1"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.ajaxops["7"])
}

func TestDenyFailsAfterSecondRejection(t *testing.T) {
	f := newFake()
	f.rejectOp["7"] = 2
	err := newTestClient(t, f).Deny(context.Background(), conf("7", 2, "1"))
	assert.ErrorIs(t, err, ErrConfirmationFailed)
	assert.Equal(t, 2, f.ajaxops["7"])
}

func TestApproveAllPredicates(t *testing.T) {
	f := newFake(conf("1", 2, "100"), conf("2", 2, "200"), conf("3", 3, "300"), conf("4", 9, "400"))
	client := newTestClient(t, f)

	result, err := client.ApproveAll(context.Background(), ForTrades([]uint64{200}))
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "2", result.Succeeded[0].Confirmation.ID)

	result, err = client.ApproveAll(context.Background(), MarketOnly())
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "3", result.Succeeded[0].Confirmation.ID)

	result, err = client.ApproveAll(context.Background(), AcceptUnknown(MarketOnly()))
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 2)

	result, err = client.ApproveAll(context.Background(), None())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	assert.Nil(t, result.Err())
}

func TestApproveAllResolvesMissingCreator(t *testing.T) {
	f := newFake(conf("1", 2, ""))
	f.details = `<div class="mobileconf_trade_area"><div class="tradeoffer" id="tradeofferid_555"></div></div>`

	result, err := newTestClient(t, f).ApproveAll(context.Background(), ForTrades([]uint64{555}))
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "555", result.Succeeded[0].Confirmation.CreatorID)
	assert.Equal(t, 1, f.detailsN)
}

func TestApproveAllSkipsDetailsWhenUnneeded(t *testing.T) {
	f := newFake(conf("1", 2, ""), conf("2", 3, "300"), conf("3", 2, ""))
	f.details = `<div class="tradeoffer" id="tradeofferid_555"></div>`
	client := newTestClient(t, f)

	result, err := client.ApproveAll(context.Background(), MarketOnly())
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "2", result.Succeeded[0].Confirmation.ID)
	assert.Zero(t, f.detailsN)

	result, err = client.ApproveAll(context.Background(), Any())
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 3)
	assert.Zero(t, f.detailsN)
}

func TestFind(t *testing.T) {
	f := newFake(conf("1", 2, "100"), conf("2", 3, "200"))
	client := newTestClient(t, f)

	c, err := client.Find(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, "2", c.ID)

	_, err = client.Find(context.Background(), 999)
	assert.ErrorIs(t, err, ErrConfirmationNotFound)
}

func TestParseOfferID(t *testing.T) {
	id, err := parseOfferID([]byte(`<html><body><div class="tradeoffer" id="tradeofferid_6543210987"></div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, uint64(6543210987), id)

	_, err = parseOfferID([]byte(`<html><body><div class="market"></div></body></html>`))
	assert.ErrorIs(t, err, ErrCannotFindOffer)

	_, err = parseOfferID([]byte(`<div class="tradeoffer" id="tradeofferid_x"></div>`))
	assert.ErrorIs(t, err, ErrCannotFindOffer)
}
