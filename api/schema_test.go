package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaFixture = `{
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
					"description": "Run the container inside the desktop session.",
					"default": false
				},
				{
					"key": "dbus_mux",
					"type": "boolean",
					"title": "D-Bus multiplexer",
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
					"key": "mount_home",
					"type": "boolean",
					"title": "Mount home directory",
					"default": true
				},
				{
					"key": "custom_mounts",
					"type": "array",
					"title": "Additional mounts",
					"default": [],
					"items": {"format": "directory-path"}
				}
			]
		}
	]
}`

func TestParseCreateSchemaGarbage(t *testing.T) {
	for _, doc := range []string{"", "not json", "{}", "[]", "42", "null", `{"sections": "nope"}`} {
		t.Run(doc, func(t *testing.T) {
			schema := ParseCreateSchema(doc)
			assert.Equal(t, 0, schema.Version)
			assert.Empty(t, schema.Sections)
		})
	}
}

func TestParseCreateSchema(t *testing.T) {
	schema := ParseCreateSchema(schemaFixture)
	require.Equal(t, 1, schema.Version)
	require.Len(t, schema.Sections, 2)

	dbus := schema.Sections[0]
	assert.Equal(t, "dbus", dbus.ID)
	assert.Equal(t, "D-Bus", dbus.Title)
	require.Len(t, dbus.Options, 2)
	assert.Equal(t, "session_mode", dbus.Options[0].Key)
	assert.Equal(t, "Run the container inside the desktop session.", dbus.Options[0].Description)
	assert.Equal(t, false, dbus.Options[0].Default)

	mux := dbus.Options[1]
	assert.Equal(t, "dbus_mux", mux.Key)
	assert.Empty(t, mux.Description)
	assert.Equal(t, map[string]any{"session_mode": true}, mux.Dependencies)
	assert.Empty(t, mux.ItemFormat)

	mounts := schema.Sections[1]
	require.Len(t, mounts.Options, 2)
	assert.True(t, mounts.Options[0].DefaultsToTrue())
	assert.Equal(t, "directory-path", mounts.Options[1].ItemFormat)
	assert.Equal(t, "array", mounts.Options[1].Type)
}

func TestParseCreateSchemaSingleOption(t *testing.T) {
	doc := `{"version":1,"sections":[{"id":"net","title":"Network","options":[{"key":"dbus_mux","type":"boolean","title":"D-Bus Mux","default":false}]}]}`

	schema := ParseCreateSchema(doc)
	require.Equal(t, 1, schema.Version)
	require.Len(t, schema.Sections, 1)
	require.Len(t, schema.Sections[0].Options, 1)

	opt := schema.Sections[0].Options[0]
	assert.Equal(t, "dbus-mux", opt.CLIFlag())
	assert.False(t, opt.DefaultsToTrue())
	assert.Nil(t, opt.Dependencies)
}

func TestSchemaLookups(t *testing.T) {
	schema := ParseCreateSchema(schemaFixture)

	all := schema.AllOptions()
	require.Len(t, all, 4)
	keys := []string{}
	for _, opt := range all {
		keys = append(keys, opt.Key)
	}
	assert.Equal(t, []string{"session_mode", "dbus_mux", "mount_home", "custom_mounts"}, keys)

	opt, ok := schema.FindOption("custom_mounts")
	require.True(t, ok)
	assert.Equal(t, "custom-mounts", opt.CLIFlag())

	_, ok = schema.FindOption("missing")
	assert.False(t, ok)
}
