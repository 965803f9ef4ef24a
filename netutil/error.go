package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, resets, proxy
	// failures, 5xx and 429 responses.
	ErrTransient = errors.New("transient network error")
	// ErrAuthRejected means the remote refused the session cookies.
	ErrAuthRejected = errors.New("authentication rejected by remote")
	// ErrUnexpectedResponse means the remote answered with a shape we cannot use.
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// CheckStatus maps a response status onto the error taxonomy.
// Being redirected to a login page counts as an authentication rejection.
func CheckStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	if req := resp.Request; req != nil && req.Response != nil && strings.HasPrefix(req.URL.Path, "/login") {
		return fmt.Errorf("%w: redirected to %s", ErrAuthRejected, resp.Request.URL.Path)
	}
	return nil
}

// classifyTransport wraps errors returned by http.Client.Do.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
