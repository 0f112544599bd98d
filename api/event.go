package api

import "encoding/json"

// EventKind tags the unsolicited notifications pushed by the daemon.
type EventKind string

const (
	// EventContainerStateChanged carries only the container name. Consumers
	// are expected to re-fetch the list rather than patch a single row.
	EventContainerStateChanged EventKind = "container-state-changed"

	// EventError carries a human-readable failure message.
	EventError EventKind = "error"

	// EventOperationProgress reports a step of a long-running daemon
	// operation, correlated by operation id.
	EventOperationProgress EventKind = "operation-progress"
)

type Event struct {
	Kind      EventKind   `json:"type"`
	Name      string      `json:"name,omitempty"`
	Message   string      `json:"message,omitempty"`
	Operation string      `json:"operation,omitempty"`
	Level     MessageType `json:"level,omitempty"`
}

// EventPage is one response of the daemon's long-poll event feed.
// Cursor points at the newest event included (or the current head when
// Events is empty) and is passed back on the next poll.
type EventPage struct {
	Cursor int64   `json:"cursor"`
	Events []Event `json:"events"`
}

// MessageType classifies progress and status messages for display.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
	MessageDim
	MessageHint
)

var (
	messageTypeNames = map[MessageType]string{
		MessageInfo:    "Info",
		MessageSuccess: "Success",
		MessageWarning: "Warning",
		MessageError:   "Error",
		MessageDim:     "Dim",
		MessageHint:    "Hint",
	}

	messageTypesByName = map[string]MessageType{
		"Info":    MessageInfo,
		"Success": MessageSuccess,
		"Warning": MessageWarning,
		"Error":   MessageError,
		"Dim":     MessageDim,
		"Hint":    MessageHint,
	}
)

func (m MessageType) String() string {
	if name, ok := messageTypeNames[m]; ok {
		return name
	}
	return messageTypeNames[MessageInfo]
}

// MessageTypeFromString falls back to MessageInfo on unrecognized input.
func MessageTypeFromString(s string) MessageType {
	if mt, ok := messageTypesByName[s]; ok {
		return mt
	}
	return MessageInfo
}

func (m MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MessageType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*m = MessageInfo
		return nil
	}
	*m = MessageTypeFromString(s)
	return nil
}
