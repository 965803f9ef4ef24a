package community

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vuquang23/steamauto/internal/logger"
)

func encodeResponse(access, refresh string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, access)
	if refresh != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, refresh)
	}
	// unknown field must be skipped
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	return b
}

func TestEncodeGenerateRequest(t *testing.T) {
	b := encodeGenerateRequest("rt", testSteamID)

	num, typ, n := protowire.ConsumeTag(b)
	require.Greater(t, n, 0)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.BytesType, typ)
	s, m := protowire.ConsumeString(b[n:])
	assert.Equal(t, "rt", s)
	b = b[n+m:]

	num, typ, n = protowire.ConsumeTag(b)
	assert.Equal(t, protowire.Number(2), num)
	assert.Equal(t, protowire.Fixed64Type, typ)
	v, m := protowire.ConsumeFixed64(b[n:])
	assert.Equal(t, uint64(testSteamID), v)
	b = b[n+m:]

	num, _, n = protowire.ConsumeTag(b)
	assert.Equal(t, protowire.Number(3), num)
	r, _ := protowire.ConsumeVarint(b[n:])
	assert.Equal(t, uint64(renewalTypeAllow), r)
}

func TestRenewRotates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		raw, err := base64.StdEncoding.DecodeString(r.PostForm.Get("input_protobuf_encoded"))
		require.NoError(t, err)
		assert.NotEmpty(t, raw)
		w.Header().Set("X-Eresult", "1")
		_, _ = w.Write(encodeResponse("new-access", "new-refresh"))
	}))
	defer srv.Close()

	r := NewRenewer(http.DefaultClient, logger.Nop())
	r.SetURL(srv.URL)
	tokens, err := r.Renew(context.Background(), "old-refresh", testSteamID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", tokens.AccessToken)
	assert.Equal(t, "new-refresh", tokens.RefreshToken)
}

func TestRenewAccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Eresult", "15")
	}))
	defer srv.Close()

	r := NewRenewer(http.DefaultClient, logger.Nop())
	r.SetURL(srv.URL)
	_, err := r.Renew(context.Background(), "old-refresh", testSteamID)
	assert.ErrorIs(t, err, ErrExpiredRefreshCredential)
}

func TestDecodeGenerateResponseTruncated(t *testing.T) {
	b := encodeResponse("access", "")
	_, err := decodeGenerateResponse(b[:3])
	assert.Error(t, err)
}
