package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContainerEqual(t *testing.T) {
	a := Container{Name: "dev", State: StateRunning, Image: "fedora", Created: time.Now()}
	b := Container{Name: "dev", State: StateStopped, Image: "ubuntu", Mode: ModeSession}
	c := Container{Name: "other", State: StateRunning, Image: "fedora"}

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
}

func TestContainerStateStrings(t *testing.T) {
	for state, name := range containerStateNames {
		assert.Equal(t, state, ContainerStateFromString(name))
		assert.Equal(t, name, state.String())
	}

	t.Run("unknown input falls back", func(t *testing.T) {
		assert.Equal(t, StateUnknown, ContainerStateFromString("Paused"))
		assert.Equal(t, StateUnknown, ContainerStateFromString(""))
		assert.Equal(t, StateUnknown, ContainerStateFromString("running"))
	})

	t.Run("out of range value renders as Unknown", func(t *testing.T) {
		assert.Equal(t, "Unknown", ContainerState(42).String())
	})
}

func TestContainerModeStrings(t *testing.T) {
	for mode, name := range containerModeNames {
		assert.Equal(t, mode, ContainerModeFromString(name))
		assert.Equal(t, name, mode.String())
	}

	t.Run("unknown input falls back", func(t *testing.T) {
		assert.Equal(t, ModeDefault, ContainerModeFromString("Isolated"))
		assert.Equal(t, ModeDefault, ContainerModeFromString(""))
	})

	t.Run("out of range value renders as Default", func(t *testing.T) {
		assert.Equal(t, "Default", ContainerMode(9).String())
	})
}

func TestMessageTypeStrings(t *testing.T) {
	for mt, name := range messageTypeNames {
		assert.Equal(t, mt, MessageTypeFromString(name))
		assert.Equal(t, name, mt.String())
	}

	assert.Equal(t, MessageInfo, MessageTypeFromString("Fancy"))
	assert.Equal(t, "Info", MessageType(-1).String())
}
