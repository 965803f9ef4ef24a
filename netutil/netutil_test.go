package netutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusUnauthorized, ErrAuthRejected},
		{http.StatusForbidden, ErrAuthRejected},
		{http.StatusTooManyRequests, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
		{http.StatusNotFound, ErrUnexpectedResponse},
	}
	for _, tc := range cases {
		err := CheckStatus(&http.Response{StatusCode: tc.status})
		if tc.want == nil {
			assert.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestCheckStatusLoginRedirect(t *testing.T) {
	u, _ := url.Parse("https://steamcommunity.com/login/home/?goto=mobileconf")
	redirected := &http.Request{URL: u, Response: &http.Response{StatusCode: http.StatusFound}}
	err := CheckStatus(&http.Response{StatusCode: http.StatusOK, Request: redirected})
	assert.ErrorIs(t, err, ErrAuthRejected)

	direct := &http.Request{URL: u}
	assert.NoError(t, CheckStatus(&http.Response{StatusCode: http.StatusOK, Request: direct}))
}

func TestGateSpacing(t *testing.T) {
	gate := NewGate(50 * time.Millisecond)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestGateWaitCancelled(t *testing.T) {
	gate := NewGate(time.Hour)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.Error(t, gate.Wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNilGate(t *testing.T) {
	var gate *Gate
	assert.NoError(t, gate.Wait(context.Background()))
}

func TestRetryOnlyTransient(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return ErrTransient
	})
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("boom")
	err = Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	calls = 0
	err = Retry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 2 {
			return ErrTransient
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClientClassifiesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	client, err := NewClient(Options{Timeout: time.Second})
	require.NoError(t, err)
	req, err := NewGet(context.Background(), addr, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestClientBadProxy(t *testing.T) {
	_, err := NewClient(Options{Proxy: "://bad"})
	assert.Error(t, err)
}
