// Package client is a typed client for the kapsule daemon's socket API.
// It tracks daemon connectivity as a side effect of every exchange and
// fans unsolicited daemon events out to subscribers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/concurrency"
	"github.com/KDE/kapsule/internal/rpc"
)

type Client struct {
	// PollTimeout bounds one event long poll. It must exceed the daemon's
	// poll window or idle polls get cut short client-side.
	PollTimeout time.Duration

	rpc *rpc.Client
	log *logrus.Entry

	connected concurrency.StateContainer[bool]
	events    concurrency.Feed[api.Event]
}

// NewSocket returns a client for a daemon listening on the given unix
// socket. Per-operation deadlines are the caller's business; the transport
// timeout is only a safety net sized for long polls.
func NewSocket(socketPath string, log *logrus.Entry) *Client {
	return NewWithTransport(rpc.NewSocketClient(socketPath, time.Minute*5), log)
}

// NewWithTransport wraps an existing transport, e.g. one pointed at an
// httptest server.
func NewWithTransport(rc *rpc.Client, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{PollTimeout: time.Minute, rpc: rc, log: log}
}

// Connected reports whether the last exchange with the daemon succeeded.
// It starts false and flips once the event pump or any call gets through.
func (c *Client) Connected() bool { return c.connected.Get() }

// ConnectivityChanged ticks when the connectivity flag may have changed.
// Receivers re-read Connected rather than trusting tick counts.
func (c *Client) ConnectivityChanged(ctx context.Context) <-chan struct{} {
	return c.connected.Watch(ctx)
}

// Subscribe returns daemon events until ctx is done. State-change events
// carry only the container name; consumers re-fetch to see what changed.
func (c *Client) Subscribe(ctx context.Context) <-chan api.Event {
	return c.events.Subscribe(ctx)
}

// Version reports the daemon's version and doubles as a connectivity probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	out := struct {
		Version string `json:"version"`
	}{}
	if err := c.finish(c.rpc.GET(ctx, "/v1/status", &out)); err != nil {
		return "", c.surface(fmt.Errorf("querying daemon status: %w", err))
	}
	return out.Version, nil
}

func (c *Client) ListContainers(ctx context.Context) ([]api.Container, error) {
	list := []api.Container{}
	if err := c.finish(c.rpc.GET(ctx, "/v1/containers", &list)); err != nil {
		return nil, c.surface(fmt.Errorf("listing containers: %w", err))
	}
	return list, nil
}

func (c *Client) ContainerInfo(ctx context.Context, name string) (api.Container, error) {
	var container api.Container
	err := c.finish(c.rpc.GET(ctx, "/v1/containers/"+url.PathEscape(name), &container))
	if err != nil {
		return api.Container{}, c.surface(fmt.Errorf("getting container %q: %w", name, err))
	}
	return container, nil
}

// GetCreateSchema fetches the raw creation schema document. An empty
// string with a nil error means the daemon has none to offer.
func (c *Client) GetCreateSchema(ctx context.Context) (string, error) {
	var raw json.RawMessage
	err := c.finish(c.rpc.GET(ctx, "/v1/schema", &raw))
	if rpc.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", c.surface(fmt.Errorf("fetching creation schema: %w", err))
	}
	return string(raw), nil
}

func (c *Client) Config(ctx context.Context) (map[string]string, error) {
	cfg := map[string]string{}
	if err := c.finish(c.rpc.GET(ctx, "/v1/config", &cfg)); err != nil {
		return nil, c.surface(fmt.Errorf("fetching daemon config: %w", err))
	}
	return cfg, nil
}

// CreateContainer submits a creation request. Transport problems come back
// as the error; the daemon's own verdict rides in the result. An empty
// image lets the daemon pick its default.
func (c *Client) CreateContainer(ctx context.Context, name, image string, opts api.ContainerOptions) (api.OperationResult, error) {
	body := map[string]any{
		"name":    name,
		"image":   image,
		"options": opts.ToWireMap(),
	}
	res := api.OperationResult{}
	if err := c.finish(c.rpc.POST(ctx, "/v1/containers", body, &res)); err != nil {
		return api.OperationResult{}, fmt.Errorf("requesting container creation: %w", err)
	}
	return res, nil
}

func (c *Client) DeleteContainer(ctx context.Context, name string, force bool) (api.OperationResult, error) {
	res := api.OperationResult{}
	path := fmt.Sprintf("/v1/containers/%s?force=%t", url.PathEscape(name), force)
	if err := c.finish(c.rpc.DELETE(ctx, path, &res)); err != nil {
		return api.OperationResult{}, fmt.Errorf("requesting container deletion: %w", err)
	}
	return res, nil
}

func (c *Client) StartContainer(ctx context.Context, name string) (api.OperationResult, error) {
	return c.action(ctx, name, "start")
}

func (c *Client) StopContainer(ctx context.Context, name string) (api.OperationResult, error) {
	return c.action(ctx, name, "stop")
}

func (c *Client) action(ctx context.Context, name, verb string) (api.OperationResult, error) {
	res := api.OperationResult{}
	path := fmt.Sprintf("/v1/containers/%s/%s", url.PathEscape(name), verb)
	if err := c.finish(c.rpc.POST(ctx, path, nil, &res)); err != nil {
		return api.OperationResult{}, fmt.Errorf("requesting container %s: %w", verb, err)
	}
	return res, nil
}

// PrepareEnter asks the daemon for the argv that attaches a terminal to
// the named container. The caller execs it; the daemon never spawns
// shells on the client's behalf.
func (c *Client) PrepareEnter(ctx context.Context, name string) (api.EnterResult, error) {
	res := api.EnterResult{}
	path := fmt.Sprintf("/v1/containers/%s/enter", url.PathEscape(name))
	if err := c.finish(c.rpc.POST(ctx, path, nil, &res)); err != nil {
		return api.EnterResult{}, fmt.Errorf("preparing enter: %w", err)
	}
	return res, nil
}

// finish notes what an exchange's outcome says about connectivity. A
// daemon-side error status still proves the daemon is reachable, and a
// canceled context says nothing either way.
func (c *Client) finish(err error) error {
	e := &rpc.ErrStatus{}
	switch {
	case err == nil || errors.As(err, &e):
		c.setConnected(true)
	case errors.Is(err, context.Canceled):
	default:
		c.setConnected(false)
	}
	return err
}

func (c *Client) setConnected(ok bool) {
	if c.connected.Get() == ok {
		return
	}
	c.connected.Swap(ok)
	if ok {
		c.log.Info("connected to the daemon")
	} else {
		c.log.Warn("lost connection to the daemon")
	}
}

// surface mirrors a read failure onto the event stream so consumers that
// only watch events still see it.
func (c *Client) surface(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.events.Publish(api.Event{Kind: api.EventError, Message: err.Error()})
	return err
}
