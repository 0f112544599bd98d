package stubdaemon

// DefaultSchemaDoc is the creation form served by default. It mirrors the
// daemon's built-in schema: the recognized options grouped into three
// sections, with cross-option requirements spelled out.
const DefaultSchemaDoc = `{
	"version": 1,
	"sections": [
		{
			"id": "dbus",
			"title": "D-Bus",
			"options": [
				{
					"key": "session_mode",
					"type": "boolean",
					"title": "Session mode",
					"description": "Share the host session bus instead of an isolated one.",
					"default": false
				},
				{
					"key": "dbus_mux",
					"type": "boolean",
					"title": "D-Bus multiplexer",
					"description": "Route bus traffic through the kapsule multiplexer.",
					"default": false,
					"requires": {"session_mode": true}
				}
			]
		},
		{
			"id": "mounts",
			"title": "Mounts",
			"options": [
				{
					"key": "host_rootfs",
					"type": "boolean",
					"title": "Host root filesystem",
					"description": "Expose the host root filesystem inside the container.",
					"default": true
				},
				{
					"key": "mount_home",
					"type": "boolean",
					"title": "Home directory",
					"description": "Share the host home directory with the container.",
					"default": true
				},
				{
					"key": "custom_mounts",
					"type": "array",
					"title": "Additional mounts",
					"description": "Extra host directories to share with the container.",
					"default": [],
					"items": {"format": "directory-path"}
				}
			]
		},
		{
			"id": "gpu",
			"title": "Graphics",
			"options": [
				{
					"key": "gpu",
					"type": "boolean",
					"title": "GPU access",
					"description": "Expose the host GPU devices to the container.",
					"default": true
				},
				{
					"key": "nvidia_drivers",
					"type": "boolean",
					"title": "NVIDIA drivers",
					"description": "Inject the host NVIDIA userspace drivers.",
					"default": true,
					"requires": {"gpu": true}
				}
			]
		}
	]
}`
