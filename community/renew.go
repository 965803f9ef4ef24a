package community

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/netutil"
	"github.com/vuquang23/steamauto/steamid"
)

// renewalTypeAllow asks Steam to rotate the refresh token when it is close
// to expiry (ETokenRenewalType_Allow).
const renewalTypeAllow = 1

// Renewer calls IAuthenticationService/GenerateAccessTokenForApp.
type Renewer struct {
	client netutil.Doer
	log    logger.Logger
	url    string
}

func NewRenewer(client netutil.Doer, log logger.Logger) *Renewer {
	return &Renewer{
		client: client,
		log:    log.With(logger.Component("renewer")),
		url:    generateTokenUrl,
	}
}

func (r *Renewer) SetURL(u string) {
	r.url = u
}

func (r *Renewer) Renew(ctx context.Context, refreshToken string, steamID steamid.SteamId) (*RenewedTokens, error) {
	body := encodeGenerateRequest(refreshToken, steamID)
	values := url.Values{"input_protobuf_encoded": {base64.StdEncoding.EncodeToString(body)}}
	request, err := netutil.NewPostForm(ctx, r.url, values)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Origin", baseUrl)

	response, err := r.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if err := netutil.CheckStatus(response); err != nil {
		return nil, err
	}
	if raw := response.Header.Get("X-Eresult"); raw != "" {
		result, _ := strconv.Atoi(raw)
		if result != eresultOK {
			return nil, resultError("eresult", result)
		}
	}
	resBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", netutil.ErrTransient, err)
	}
	tokens, err := decodeGenerateResponse(resBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrUnexpectedResponse)
	}
	r.log.Debug("access token renewed", logger.Bool("rotated", tokens.RefreshToken != ""))
	return tokens, nil
}

// CAuthentication_AccessToken_GenerateForApp_Request:
// 1 refresh_token string, 2 steamid fixed64, 3 renewal_type enum.
func encodeGenerateRequest(refreshToken string, steamID steamid.SteamId) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, refreshToken)
	b = protowire.AppendTag(b, 2, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, uint64(steamID))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, renewalTypeAllow)
	return b
}

// CAuthentication_AccessToken_GenerateForApp_Response:
// 1 access_token string, 2 refresh_token string.
func decodeGenerateResponse(b []byte) (*RenewedTokens, error) {
	var tokens RenewedTokens
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			tokens.AccessToken, n = protowire.ConsumeString(b)
		case num == 2 && typ == protowire.BytesType:
			tokens.RefreshToken, n = protowire.ConsumeString(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return &tokens, nil
}
