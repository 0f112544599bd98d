package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/KDE/kapsule/api"
)

// eventsCmd streams the daemon's event feed to stdout until interrupted.
// Connectivity drops are retried by the pump, not surfaced as errors here.
func eventsCmd(c *cli.Context) error {
	cc, err := setup(c)
	if err != nil {
		return err
	}

	events := cc.Client.Subscribe(c.Context)
	go cc.Client.Run(c.Context)

	for event := range events {
		fmt.Fprintln(os.Stdout, formatEvent(event))
	}
	return nil
}

func formatEvent(event api.Event) string {
	switch event.Kind {
	case api.EventContainerStateChanged:
		return fmt.Sprintf("state changed: %s", event.Name)
	case api.EventError:
		return fmt.Sprintf("error: %s", event.Message)
	case api.EventOperationProgress:
		return fmt.Sprintf("%-7s  %s", strings.ToLower(event.Level.String()), event.Message)
	default:
		return string(event.Kind)
	}
}
