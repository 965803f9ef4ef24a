package netutil

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// Doer is the transport every Steam client sends requests through.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	Gate    *Gate
	Proxy   string
	Timeout time.Duration
}

// Client is a per-account transport: it waits on the shared gate, then sends
// the request through the account's own proxy.
type Client struct {
	client *http.Client
	gate   *Gate
}

func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyUrl, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyUrl)
	} else {
		transport.Proxy = nil
	}
	return &Client{
		client: &http.Client{Transport: transport, Timeout: timeout},
		gate:   opts.Gate,
	}, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.gate.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return resp, nil
}
