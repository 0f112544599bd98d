// Package view provides read-only, row-indexed projections over manager
// snapshots for presentation layers. Projections never mutate what they
// are handed: Reset swaps the whole backing sequence atomically and wakes
// watchers, and lookups outside the current range return nil.
package view

import (
	"context"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/concurrency"
)

// ContainerList projects a container snapshot. Fields: name, state,
// image, created, mode.
type ContainerList struct {
	state concurrency.StateContainer[[]api.Container]
}

// Reset replaces the entire backing sequence. The snapshot is copied, so
// later mutation by the caller does not leak into readers.
func (l *ContainerList) Reset(containers []api.Container) {
	l.state.Swap(append([]api.Container(nil), containers...))
}

// Watch ticks after each Reset until ctx is done.
func (l *ContainerList) Watch(ctx context.Context) <-chan struct{} {
	return l.state.Watch(ctx)
}

func (l *ContainerList) RowCount() int {
	return len(l.state.Get())
}

// At returns the container at the given row, or false when out of range.
func (l *ContainerList) At(row int) (api.Container, bool) {
	containers := l.state.Get()
	if row < 0 || row >= len(containers) {
		return api.Container{}, false
	}
	return containers[row], true
}

func (l *ContainerList) FieldAt(row int, field string) any {
	c, ok := l.At(row)
	if !ok {
		return nil
	}
	switch field {
	case "name":
		return c.Name
	case "state":
		return c.State
	case "image":
		return c.Image
	case "created":
		return c.Created
	case "mode":
		return c.Mode
	default:
		return nil
	}
}

// SchemaSection is one row of a SchemaView. Options is the nested
// projection over the section's options, rebuilt with its parent.
type SchemaSection struct {
	ID      string
	Title   string
	Options *OptionList
}

// SchemaView projects a creation schema as sections. Fields: id, title,
// options (the nested *OptionList).
type SchemaView struct {
	state concurrency.StateContainer[[]SchemaSection]
}

// Reset rebuilds the section rows and one nested option projection per
// section. Previously handed-out nested projections keep their old
// contents; readers pick up the new ones on the next lookup.
func (v *SchemaView) Reset(schema api.CreateSchema) {
	sections := make([]SchemaSection, 0, len(schema.Sections))
	for _, section := range schema.Sections {
		options := &OptionList{}
		options.Reset(section.Options)
		sections = append(sections, SchemaSection{ID: section.ID, Title: section.Title, Options: options})
	}
	v.state.Swap(sections)
}

func (v *SchemaView) Watch(ctx context.Context) <-chan struct{} {
	return v.state.Watch(ctx)
}

func (v *SchemaView) RowCount() int {
	return len(v.state.Get())
}

func (v *SchemaView) At(row int) (SchemaSection, bool) {
	sections := v.state.Get()
	if row < 0 || row >= len(sections) {
		return SchemaSection{}, false
	}
	return sections[row], true
}

func (v *SchemaView) FieldAt(row int, field string) any {
	section, ok := v.At(row)
	if !ok {
		return nil
	}
	switch field {
	case "id":
		return section.ID
	case "title":
		return section.Title
	case "options":
		return section.Options
	default:
		return nil
	}
}

// OptionList projects one section's options. Fields: key, type, title,
// description, default, dependencies, itemFormat.
type OptionList struct {
	state concurrency.StateContainer[[]api.CreateSchemaOption]
}

func (l *OptionList) Reset(options []api.CreateSchemaOption) {
	l.state.Swap(append([]api.CreateSchemaOption(nil), options...))
}

func (l *OptionList) Watch(ctx context.Context) <-chan struct{} {
	return l.state.Watch(ctx)
}

func (l *OptionList) RowCount() int {
	return len(l.state.Get())
}

func (l *OptionList) At(row int) (api.CreateSchemaOption, bool) {
	options := l.state.Get()
	if row < 0 || row >= len(options) {
		return api.CreateSchemaOption{}, false
	}
	return options[row], true
}

func (l *OptionList) FieldAt(row int, field string) any {
	option, ok := l.At(row)
	if !ok {
		return nil
	}
	switch field {
	case "key":
		return option.Key
	case "type":
		return option.Type
	case "title":
		return option.Title
	case "description":
		return option.Description
	case "default":
		return option.Default
	case "dependencies":
		return option.Dependencies
	case "itemFormat":
		return option.ItemFormat
	default:
		return nil
	}
}
