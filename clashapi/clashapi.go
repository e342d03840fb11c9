// Copyright 2026 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clashapi is a client for the RESTful controller of a Clash-compatible
// core (mihomo). Connections to the controller go through an outline-sdk
// [transport.StreamDialer].
package clashapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/transport"
)

const (
	// DefaultTestURL is the URL fetched through a proxy to measure its delay.
	DefaultTestURL = "https://www.gstatic.com/generate_204"
	// DefaultDelayTimeout bounds a single delay test on the core side.
	DefaultDelayTimeout = 10 * time.Second
)

// Delay is the result of a proxy delay test.
type Delay struct {
	// Delay is the round trip in milliseconds.
	Delay int `json:"delay"`
	// Message is set by some cores when the test failed.
	Message string `json:"message,omitempty"`
}

// Version is the core's version report.
type Version struct {
	Version string `json:"version"`
	Meta    bool   `json:"meta"`
}

// APIError is a non-2xx response from the controller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("controller returned %s", http.StatusText(e.StatusCode))
	}
	return e.Message
}

// Client talks to one controller.
type Client struct {
	base   *url.URL
	secret string
	http   *http.Client
}

// New creates a client for the controller at address ("host:port" or an
// http URL). A nil dialer dials TCP directly.
func New(address, secret string, dialer transport.StreamDialer) (*Client, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid controller address: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("invalid controller address %q", address)
	}
	if dialer == nil {
		dialer = &transport.TCPDialer{}
	}
	tr := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if !strings.HasPrefix(network, "tcp") {
				return nil, fmt.Errorf("protocol not supported: %v", network)
			}
			return dialer.DialStream(ctx, addr)
		},
		// Proxy is left nil so the controller is never reached through the
		// system proxy.
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{base: base, secret: secret, http: &http.Client{Transport: tr}}, nil
}

// do sends a request to the path made of elems, each escaped as one segment.
func (c *Client) do(ctx context.Context, method string, elems []string, query url.Values, out any) error {
	u := *c.base
	prefix := strings.TrimSuffix(c.base.Path, "/")
	u.Path, u.RawPath = prefix, prefix
	for _, elem := range elems {
		u.Path += "/" + elem
		u.RawPath += "/" + url.PathEscape(elem)
	}
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ProxyDelay asks the core to measure the delay of the proxy called name by
// fetching testURL through it. An empty testURL uses [DefaultTestURL]; a zero
// timeout uses [DefaultDelayTimeout].
func (c *Client) ProxyDelay(ctx context.Context, name, testURL string, timeout time.Duration) (Delay, error) {
	if testURL == "" {
		testURL = DefaultTestURL
	}
	if timeout <= 0 {
		timeout = DefaultDelayTimeout
	}
	query := url.Values{}
	query.Set("timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	query.Set("url", testURL)
	var d Delay
	err := c.do(ctx, http.MethodGet, []string{"proxies", name, "delay"}, query, &d)
	return d, err
}

// Version returns the core's version.
func (c *Client) Version(ctx context.Context) (Version, error) {
	var v Version
	err := c.do(ctx, http.MethodGet, []string{"version"}, nil, &v)
	return v, err
}

// WaitReady polls [Client.Version] every interval until it succeeds or ctx is
// done.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) (Version, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		v, err := c.Version(ctx)
		if err == nil {
			return v, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return Version{}, err
		}
		select {
		case <-ctx.Done():
			return Version{}, fmt.Errorf("controller not ready: %w", errors.Join(ctx.Err(), err))
		case <-ticker.C:
		}
	}
}
