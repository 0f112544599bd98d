package stubdaemon

import (
	"context"
	"sort"
	"sync"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/internal/concurrency"
)

type record struct {
	container api.Container
	options   api.ContainerOptions
}

type store struct {
	lock       sync.Mutex
	containers map[string]record
	events     []api.Event
	head       concurrency.StateContainer[int64]
}

func newStore() *store {
	return &store{containers: map[string]record{}}
}

func (s *store) List() []api.Container {
	s.lock.Lock()
	defer s.lock.Unlock()

	list := []api.Container{}
	for _, rec := range s.containers {
		list = append(list, rec.container)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (s *store) Get(name string) (api.Container, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	rec, ok := s.containers[name]
	return rec.container, ok
}

func (s *store) Put(c api.Container, opts api.ContainerOptions) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.containers[c.Name]; exists {
		return false
	}
	s.containers[c.Name] = record{container: c, options: opts}
	return true
}

func (s *store) Delete(name string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.containers[name]; !exists {
		return false
	}
	delete(s.containers, name)
	return true
}

// SetState transitions a container and reports whether it existed and was
// in one of the given states (any state when from is empty).
func (s *store) SetState(name string, to api.ContainerState, from ...api.ContainerState) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	rec, ok := s.containers[name]
	if !ok {
		return false
	}
	if len(from) > 0 {
		matched := false
		for _, f := range from {
			if rec.container.State == f {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	rec.container.State = to
	s.containers[name] = rec
	return true
}

// Append adds an event to the feed and wakes long-poll watchers.
func (s *store) Append(ev api.Event) {
	s.lock.Lock()
	s.events = append(s.events, ev)
	head := int64(len(s.events))
	s.lock.Unlock()

	s.head.Swap(head)
}

// EventsSince returns the events after the given cursor and the feed head.
func (s *store) EventsSince(cursor int64) ([]api.Event, int64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	head := int64(len(s.events))
	if cursor < 0 || cursor > head {
		cursor = 0
	}
	events := make([]api.Event, head-cursor)
	copy(events, s.events[cursor:])
	return events, head
}

func (s *store) WatchHead(ctx context.Context) <-chan struct{} {
	return s.head.Watch(ctx)
}
