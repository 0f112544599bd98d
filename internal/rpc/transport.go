package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client speaks the daemon's JSON conventions over HTTP. The zero value is
// not usable; construct with NewSocketClient or NewClient.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// NewSocketClient reaches a daemon listening on a unix socket. The host in
// request URLs is a placeholder; all connections go to the socket. The
// timeout bounds one whole exchange including reading the response body.
func NewSocketClient(socketPath string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: "http://kapsule",
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// NewClient wraps an existing http.Client, e.g. one from httptest.
func NewClient(hc *http.Client, baseURL string) *Client {
	return &Client{HTTP: hc, BaseURL: baseURL}
}

// ErrStatus is returned for non-2xx responses. Receiving one still proves
// the daemon is reachable.
type ErrStatus struct {
	Status  int
	Message string
}

func (e *ErrStatus) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon error status: %d", e.Status)
	}
	return fmt.Sprintf("daemon error status: %d, message: %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	e := &ErrStatus{}
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

func (c *Client) GET(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) POST(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) DELETE(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newErrStatus(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func newErrStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	e := &ErrStatus{Status: resp.StatusCode}
	wire := struct {
		Error string `json:"error"`
	}{}
	if json.Unmarshal(body, &wire) == nil && wire.Error != "" {
		e.Message = wire.Error
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
