package api

import "time"

// Container is a point-in-time snapshot of one container as reported by the
// daemon. Snapshots are replaced wholesale on refresh, never mutated.
type Container struct {
	Name    string
	State   ContainerState
	Image   string
	Created time.Time
	Mode    ContainerMode
}

// Equal reports whether two snapshots refer to the same container.
// Identity is the name, nothing else.
func (c Container) Equal(other Container) bool {
	return c.Name == other.Name
}

type ContainerState int

const (
	StateUnknown ContainerState = iota
	StateRunning
	StateStopped
	StateStarting
	StateStopping
	StateError
)

var (
	containerStateNames = map[ContainerState]string{
		StateUnknown:  "Unknown",
		StateRunning:  "Running",
		StateStopped:  "Stopped",
		StateStarting: "Starting",
		StateStopping: "Stopping",
		StateError:    "Error",
	}

	containerStatesByName = map[string]ContainerState{
		"Unknown":  StateUnknown,
		"Running":  StateRunning,
		"Stopped":  StateStopped,
		"Starting": StateStarting,
		"Stopping": StateStopping,
		"Error":    StateError,
	}
)

func (s ContainerState) String() string {
	if name, ok := containerStateNames[s]; ok {
		return name
	}
	return containerStateNames[StateUnknown]
}

// ContainerStateFromString maps a wire string to a state. Unrecognized
// input falls back to StateUnknown so a daemon newer than this client
// can't break decoding.
func ContainerStateFromString(s string) ContainerState {
	if state, ok := containerStatesByName[s]; ok {
		return state
	}
	return StateUnknown
}

type ContainerMode int

const (
	ModeDefault ContainerMode = iota
	ModeSession
	ModeDbusMux
)

var (
	containerModeNames = map[ContainerMode]string{
		ModeDefault: "Default",
		ModeSession: "Session",
		ModeDbusMux: "DbusMux",
	}

	containerModesByName = map[string]ContainerMode{
		"Default": ModeDefault,
		"Session": ModeSession,
		"DbusMux": ModeDbusMux,
	}
)

func (m ContainerMode) String() string {
	if name, ok := containerModeNames[m]; ok {
		return name
	}
	return containerModeNames[ModeDefault]
}

// ContainerModeFromString falls back to ModeDefault on unrecognized input.
func ContainerModeFromString(s string) ContainerMode {
	if mode, ok := containerModesByName[s]; ok {
		return mode
	}
	return ModeDefault
}
