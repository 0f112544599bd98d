package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KDE/kapsule/api"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		Name   string
		Event  api.Event
		Expect string
	}{
		{
			Name:   "state change",
			Event:  api.Event{Kind: api.EventContainerStateChanged, Name: "dev"},
			Expect: "state changed: dev",
		},
		{
			Name:   "error",
			Event:  api.Event{Kind: api.EventError, Message: "disk full"},
			Expect: "error: disk full",
		},
		{
			Name:   "progress",
			Event:  api.Event{Kind: api.EventOperationProgress, Message: "Building root filesystem…", Level: api.MessageDim},
			Expect: "dim      Building root filesystem…",
		},
		{
			Name:   "progress success",
			Event:  api.Event{Kind: api.EventOperationProgress, Message: "Container created.", Level: api.MessageSuccess},
			Expect: "success  Container created.",
		},
		{
			Name:   "unknown kinds pass through",
			Event:  api.Event{Kind: api.EventKind("telemetry")},
			Expect: "telemetry",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expect, formatEvent(test.Event))
		})
	}
}
