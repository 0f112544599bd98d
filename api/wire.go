package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// The daemon encodes records as ordered JSON arrays rather than objects,
// mirroring its internal call interface. The codecs below keep field order
// part of the contract.

// OperationResult is the daemon's verdict on a mutating call.
// Wire form: [success, error].
type OperationResult struct {
	Success bool
	Error   string
}

// EnterResult is the daemon's answer to an enter request.
// Wire form: [success, error, execArgs]. ExecArgs is meaningful only on
// success, Error only on failure.
type EnterResult struct {
	Success  bool
	Error    string
	ExecArgs []string
}

func (c Container) MarshalJSON() ([]byte, error) {
	created := ""
	if !c.Created.IsZero() {
		created = c.Created.UTC().Format(time.RFC3339)
	}
	return json.Marshal([5]any{c.Name, c.State.String(), c.Image, created, c.Mode.String()})
}

func (c *Container) UnmarshalJSON(b []byte) error {
	var fields []string
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("container record: %w", err)
	}
	if len(fields) < 5 {
		return fmt.Errorf("container record: expected 5 fields, got %d", len(fields))
	}

	c.Name = fields[0]
	c.State = ContainerStateFromString(fields[1])
	c.Image = fields[2]
	c.Mode = ContainerModeFromString(fields[4])

	// An unparseable timestamp degrades to the zero time rather than
	// failing the record.
	c.Created = time.Time{}
	if fields[3] != "" {
		if t, err := time.Parse(time.RFC3339, fields[3]); err == nil {
			c.Created = t
		}
	}
	return nil
}

func (r OperationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Success, r.Error})
}

func (r *OperationResult) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("operation result: %w", err)
	}
	if len(fields) < 2 {
		return fmt.Errorf("operation result: expected 2 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &r.Success); err != nil {
		return fmt.Errorf("operation result success: %w", err)
	}
	if err := json.Unmarshal(fields[1], &r.Error); err != nil {
		return fmt.Errorf("operation result error: %w", err)
	}
	return nil
}

func (r EnterResult) MarshalJSON() ([]byte, error) {
	args := r.ExecArgs
	if args == nil {
		args = []string{}
	}
	return json.Marshal([3]any{r.Success, r.Error, args})
}

func (r *EnterResult) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("enter result: %w", err)
	}
	if len(fields) < 3 {
		return fmt.Errorf("enter result: expected 3 fields, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &r.Success); err != nil {
		return fmt.Errorf("enter result success: %w", err)
	}
	if err := json.Unmarshal(fields[1], &r.Error); err != nil {
		return fmt.Errorf("enter result error: %w", err)
	}
	if err := json.Unmarshal(fields[2], &r.ExecArgs); err != nil {
		return fmt.Errorf("enter result exec args: %w", err)
	}
	return nil
}
