package api

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
)

// ContainerOptions is the creation-time configuration of a container.
// The default tags are the single source of truth for the sparse-diff
// wire encoding: ToWireMap emits exactly the fields that differ from them.
type ContainerOptions struct {
	SessionMode   bool     `json:"session_mode" default:"false"`
	DbusMux       bool     `json:"dbus_mux" default:"false"`
	HostRootfs    bool     `json:"host_rootfs" default:"true"`
	MountHome     bool     `json:"mount_home" default:"true"`
	CustomMounts  []string `json:"custom_mounts"`
	GPU           bool     `json:"gpu" default:"true"`
	NvidiaDrivers bool     `json:"nvidia_drivers" default:"true"`
}

func DefaultContainerOptions() ContainerOptions {
	var o ContainerOptions
	defaults.MustSet(&o)
	return o
}

// ToWireMap encodes the options as a sparse map: a key is present if and
// only if its value differs from the default. Omitted keys are filled in
// by the daemon, which keeps old clients compatible with daemons that
// grow new options.
func (o ContainerOptions) ToWireMap() map[string]any {
	def := DefaultContainerOptions()
	m := map[string]any{}

	if o.SessionMode != def.SessionMode {
		m["session_mode"] = o.SessionMode
	}
	if o.DbusMux != def.DbusMux {
		m["dbus_mux"] = o.DbusMux
	}
	if o.HostRootfs != def.HostRootfs {
		m["host_rootfs"] = o.HostRootfs
	}
	if o.MountHome != def.MountHome {
		m["mount_home"] = o.MountHome
	}
	if len(o.CustomMounts) > 0 {
		m["custom_mounts"] = append([]string(nil), o.CustomMounts...)
	}
	if o.GPU != def.GPU {
		m["gpu"] = o.GPU
	}
	if o.NvidiaDrivers != def.NvidiaDrivers {
		m["nvidia_drivers"] = o.NvidiaDrivers
	}

	return m
}

// OptionsFromWireMap decodes a sparse option map the same way the daemon
// does: start from the defaults, overlay the given keys, reject anything
// unrecognized or mistyped, then enforce cross-option rules.
func OptionsFromWireMap(m map[string]any) (ContainerOptions, error) {
	o := DefaultContainerOptions()

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &o,
		TagName:     "json",
		ErrorUnused: true,
		Metadata:    &md,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(m); err != nil {
		return DefaultContainerOptions(), fmt.Errorf("decoding options: %w", err)
	}

	if o.DbusMux {
		o.SessionMode = true
		if !o.HostRootfs {
			return DefaultContainerOptions(), fmt.Errorf("option dbus_mux requires host_rootfs")
		}
	}
	if o.NvidiaDrivers && !o.GPU && wasSet(md.Keys, "nvidia_drivers") {
		return DefaultContainerOptions(), fmt.Errorf("option nvidia_drivers requires gpu")
	}

	return o, nil
}

func wasSet(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
