package totp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/vuquang23/steamauto/netutil"
)

const serverTimeUrl = "https://api.steampowered.com/ITwoFactorService/QueryTime/v1/"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// TimeOffset is a Clock that follows Steam server time. Codes generated from a
// drifting local clock are rejected by the server.
type TimeOffset struct {
	seconds atomic.Int64
	local   func() time.Time
	url     string
}

func NewTimeOffset() *TimeOffset {
	return &TimeOffset{local: time.Now, url: serverTimeUrl}
}

func (o *TimeOffset) SetURL(u string) {
	o.url = u
}

func (o *TimeOffset) Now() time.Time {
	return o.local().Add(o.Offset())
}

func (o *TimeOffset) Offset() time.Duration {
	return time.Duration(o.seconds.Load()) * time.Second
}

func (o *TimeOffset) Set(offset time.Duration) {
	o.seconds.Store(int64(offset / time.Second))
}

// Sync queries ITwoFactorService/QueryTime and stores the difference.
func (o *TimeOffset) Sync(ctx context.Context, client netutil.Doer) error {
	req, err := netutil.NewPostForm(ctx, o.url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := netutil.CheckStatus(resp); err != nil {
		return err
	}
	bytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}

	var body struct {
		Response struct {
			ServerTime json.Number `json:"server_time"`
		} `json:"response"`
	}
	if err := json.Unmarshal(bytes, &body); err != nil {
		return fmt.Errorf("%w: query time: %v", netutil.ErrUnexpectedResponse, err)
	}
	st, err := strconv.ParseInt(body.Response.ServerTime.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: server_time %q", netutil.ErrUnexpectedResponse, body.Response.ServerTime)
	}
	o.seconds.Store(st - o.local().Unix())
	return nil
}
