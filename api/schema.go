package api

import (
	"encoding/json"
	"strings"
)

// CreateSchema describes the form the daemon wants shown when creating a
// container. Version 0 means "no usable schema"; callers must not cache
// such a value. The tree is immutable after parsing.
type CreateSchema struct {
	Version  int
	Sections []CreateSchemaSection
}

// CreateSchemaSection groups options for display. Order is meaningful.
type CreateSchemaSection struct {
	ID      string
	Title   string
	Options []CreateSchemaOption
}

type CreateSchemaOption struct {
	Key         string
	Type        string // "boolean", "string" or "array"
	Title       string
	Description string
	Default     any

	// Dependencies maps another option's key to the value it must hold for
	// this option to be enabled.
	Dependencies map[string]any

	// ItemFormat is a hint like "directory-path", set only for array options
	// whose document carries an items block.
	ItemFormat string
}

// AllOptions flattens the sections in document order.
func (s CreateSchema) AllOptions() []CreateSchemaOption {
	var out []CreateSchemaOption
	for _, sec := range s.Sections {
		out = append(out, sec.Options...)
	}
	return out
}

// FindOption looks an option up by wire key across all sections.
func (s CreateSchema) FindOption(key string) (CreateSchemaOption, bool) {
	for _, sec := range s.Sections {
		for _, opt := range sec.Options {
			if opt.Key == key {
				return opt, true
			}
		}
	}
	return CreateSchemaOption{}, false
}

// CLIFlag is the command-line spelling of the option key: underscores
// become dashes.
func (o CreateSchemaOption) CLIFlag() string {
	return strings.ReplaceAll(o.Key, "_", "-")
}

// DefaultsToTrue reports whether the option is a boolean defaulting to true.
func (o CreateSchemaOption) DefaultsToTrue() bool {
	b, ok := o.Default.(bool)
	return ok && b
}

type schemaDoc struct {
	Version  int          `json:"version"`
	Sections []sectionDoc `json:"sections"`
}

type sectionDoc struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Options []optionDoc `json:"options"`
}

type optionDoc struct {
	Key         string         `json:"key"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Default     any            `json:"default"`
	Items       *itemsDoc      `json:"items"`
	Requires    map[string]any `json:"requires"`
}

type itemsDoc struct {
	Format string `json:"format"`
}

// ParseCreateSchema converts the daemon's schema document into a
// CreateSchema. It never fails: malformed input yields Version 0 and no
// sections, which callers treat as "schema unavailable". Section and
// option order follows the document exactly.
func ParseCreateSchema(doc string) CreateSchema {
	var parsed schemaDoc
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return CreateSchema{}
	}

	out := CreateSchema{Version: parsed.Version}
	for _, sec := range parsed.Sections {
		section := CreateSchemaSection{ID: sec.ID, Title: sec.Title}
		for _, opt := range sec.Options {
			option := CreateSchemaOption{
				Key:         opt.Key,
				Type:        opt.Type,
				Title:       opt.Title,
				Description: opt.Description,
				Default:     opt.Default,
			}
			if opt.Items != nil {
				option.ItemFormat = opt.Items.Format
			}
			if len(opt.Requires) > 0 {
				option.Dependencies = make(map[string]any, len(opt.Requires))
				for k, v := range opt.Requires {
					option.Dependencies[k] = v
				}
			}
			section.Options = append(section.Options, option)
		}
		out.Sections = append(out.Sections, section)
	}
	return out
}
