package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/concurrency"
)

// Run long-polls the daemon's event feed until ctx is done and publishes
// what arrives to subscribers. Poll failures back off and retry; that is
// transport maintenance, not a retry of anything a caller asked for. The
// first poll carries cursor zero, which the daemon answers immediately
// with its current feed position, so connectivity settles right away.
func (c *Client) Run(ctx context.Context) {
	tightloop := make(chan struct{})
	go func() {
		for {
			select {
			case tightloop <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var cursor int64
	concurrency.RunLoop(ctx, tightloop, 0, time.Minute, func(ctx context.Context) bool {
		next, err := c.pollEvents(ctx, cursor)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Debugf("event poll failed: %s", err)
			}
			return false
		}
		cursor = next
		return true
	})
}

func (c *Client) pollEvents(ctx context.Context, cursor int64) (int64, error) {
	ctx, done := context.WithTimeout(ctx, concurrency.Jitter(c.PollTimeout))
	defer done()

	page := api.EventPage{}
	err := c.finish(c.rpc.GET(ctx, fmt.Sprintf("/v1/events?cursor=%d", cursor), &page))
	if err != nil {
		return 0, err
	}

	for _, event := range page.Events {
		c.events.Publish(event)
	}

	// The daemon's cursor is authoritative. Adopting a smaller one after a
	// daemon restart re-reads its feed instead of polling past its head.
	return page.Cursor, nil
}
