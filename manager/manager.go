// Package manager orchestrates the kapsule client for presentation layers:
// it owns the loading/connected/status state, refreshes the container
// snapshot, caches the creation schema, and runs user actions without ever
// blocking the caller.
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/KDE/kapsule/api"
	"github.com/KDE/kapsule/client"
	"github.com/KDE/kapsule/internal/concurrency"
)

const statusCannotConnect = "Cannot connect to kapsule-daemon. Is the service running?"

// State is the published snapshot consumed by presentation layers. Treat
// the Containers slice and Schema as read-only.
type State struct {
	Loading          bool
	Connected        bool
	StatusMessage    string
	DefaultImage     string
	DefaultContainer string
	Containers       []api.Container
	Schema           api.CreateSchema
}

type EventKind string

const (
	EventContainerCreated EventKind = "container-created"
	EventOperationFailed  EventKind = "operation-failed"
)

// Event is a fire-and-forget notification. Operation failures carry the
// user-visible message; container-created has no payload.
type Event struct {
	Kind    EventKind
	Message string
}

type Manager struct {
	// Timeout bounds every RPC call the manager makes.
	Timeout time.Duration

	client *client.Client
	log    *logrus.Entry

	state  concurrency.StateContainer[State]
	events concurrency.Feed[Event]

	// refresh coalesces: one queued cycle at most, extra requests fold in.
	refresh      chan struct{}
	schemaFlight singleflight.Group

	lock         sync.Mutex
	baseCtx      context.Context
	busy         map[string]struct{}
	schemaLoaded bool
}

func New(cli *client.Client, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		Timeout: time.Second * 30,
		client:  cli,
		log:     log,
		refresh: make(chan struct{}, 1),
		busy:    map[string]struct{}{},
	}
}

// State returns the current published snapshot.
func (m *Manager) State() State { return m.state.Get() }

// Watch ticks after each snapshot change until ctx is done.
func (m *Manager) Watch(ctx context.Context) <-chan struct{} { return m.state.Watch(ctx) }

// Subscribe returns manager notifications until ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan Event { return m.events.Subscribe(ctx) }

// Refresh requests a full re-fetch of containers, schema, and config. It
// never blocks: requests made while a cycle is running coalesce into one
// trailing cycle.
func (m *Manager) Refresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// Run drives the manager until ctx is done: it starts the client's event
// pump, performs an initial refresh, and then reacts to refresh requests,
// daemon events, and connectivity changes. Cancelling ctx aborts in-flight
// calls. Refresh cycles are serialized here; nothing else fetches.
func (m *Manager) Run(ctx context.Context) {
	m.lock.Lock()
	m.baseCtx = ctx
	m.lock.Unlock()

	connCh := m.client.ConnectivityChanged(ctx)
	eventCh := m.client.Subscribe(ctx)
	go m.client.Run(ctx)

	m.Refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.refresh:
			m.doRefresh(ctx)
		case <-connCh:
			m.Refresh()
		case event := <-eventCh:
			m.handleEvent(event)
		}
	}
}

func (m *Manager) handleEvent(event api.Event) {
	switch event.Kind {
	case api.EventContainerStateChanged:
		// the payload names the container but not its new state, so the
		// whole snapshot is re-fetched
		m.Refresh()
	case api.EventError:
		m.publish(func(s *State) { s.StatusMessage = event.Message })
		m.events.Publish(Event{Kind: EventOperationFailed, Message: event.Message})
	case api.EventOperationProgress:
		// progress arrives after the action already settled its status, so
		// it is observed through the client's event stream, not mirrored
		m.log.Debugf("operation %s: %s", event.Operation, event.Message)
	}
}

func (m *Manager) doRefresh(ctx context.Context) {
	if !m.client.Connected() {
		m.publish(func(s *State) {
			s.Connected = false
			s.Loading = false
			s.StatusMessage = statusCannotConnect
		})
		return
	}

	m.publish(func(s *State) {
		s.Connected = true
		s.Loading = true
		s.StatusMessage = ""
	})

	var (
		containers []api.Container
		listErr    error
		config     map[string]string
		configErr  error
	)

	// Sub-fetch failures are absorbed here so one bad read does not abort
	// its siblings; the client has already surfaced them as error events.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		callCtx, done := context.WithTimeout(groupCtx, m.Timeout)
		defer done()
		containers, listErr = m.client.ListContainers(callCtx)
		return nil
	})
	group.Go(func() error {
		callCtx, done := context.WithTimeout(groupCtx, m.Timeout)
		defer done()
		if _, err := m.EnsureSchema(callCtx); err != nil {
			m.log.Debugf("creation schema not loaded: %s", err)
		}
		return nil
	})
	group.Go(func() error {
		callCtx, done := context.WithTimeout(groupCtx, m.Timeout)
		defer done()
		config, configErr = m.client.Config(callCtx)
		return nil
	})
	group.Wait()

	m.publish(func(s *State) {
		s.Loading = false
		if listErr == nil {
			s.Containers = containers
		} else {
			s.Containers = []api.Container{}
		}
		if configErr == nil {
			s.DefaultImage = config["default_image"]
			s.DefaultContainer = config["default_container"]
		}
	})
}

// EnsureSchema returns the creation schema, fetching and parsing it on
// first use. The fetch happens at most once per process once a document
// with a positive version has been seen; failures and version-zero parses
// leave the latch unset so the next refresh retries. Concurrent callers
// share one daemon fetch.
func (m *Manager) EnsureSchema(ctx context.Context) (api.CreateSchema, error) {
	m.lock.Lock()
	if m.schemaLoaded {
		m.lock.Unlock()
		return m.state.Get().Schema, nil
	}
	m.lock.Unlock()

	val, err, _ := m.schemaFlight.Do("schema", func() (any, error) {
		doc, err := m.client.GetCreateSchema(ctx)
		if err != nil {
			return api.CreateSchema{}, err
		}

		schema := api.ParseCreateSchema(doc)
		if schema.Version > 0 {
			// publish before latching: once the latch is observable the
			// published snapshot must already carry the schema
			m.publish(func(s *State) { s.Schema = schema })
			m.lock.Lock()
			m.schemaLoaded = true
			m.lock.Unlock()
		}
		return schema, nil
	})
	if err != nil {
		return api.CreateSchema{}, err
	}
	return val.(api.CreateSchema), nil
}

// CreateContainer asks the daemon to create a container. Fire and forget:
// progress is observable through State and Subscribe. An empty image lets
// the daemon pick its default.
func (m *Manager) CreateContainer(name, image string, opts api.ContainerOptions) {
	m.action(name, fmt.Sprintf("Creating container %s…", name), true, func(ctx context.Context) (api.OperationResult, error) {
		return m.client.CreateContainer(ctx, name, image, opts)
	})
}

// DeleteContainer removes a container, running or not.
func (m *Manager) DeleteContainer(name string) {
	m.action(name, fmt.Sprintf("Deleting container %s…", name), false, func(ctx context.Context) (api.OperationResult, error) {
		return m.client.DeleteContainer(ctx, name, true)
	})
}

func (m *Manager) StartContainer(name string) {
	m.action(name, fmt.Sprintf("Starting container %s…", name), false, func(ctx context.Context) (api.OperationResult, error) {
		return m.client.StartContainer(ctx, name)
	})
}

func (m *Manager) StopContainer(name string) {
	m.action(name, fmt.Sprintf("Stopping container %s…", name), false, func(ctx context.Context) (api.OperationResult, error) {
		return m.client.StopContainer(ctx, name)
	})
}

func (m *Manager) action(name, status string, isCreate bool, fn func(context.Context) (api.OperationResult, error)) {
	if strings.TrimSpace(name) == "" {
		m.fail("Container name is required.")
		return
	}
	if !m.acquire(name) {
		m.fail(fmt.Sprintf("Another operation on container %s is still in progress.", name))
		return
	}

	m.publish(func(s *State) {
		s.Loading = true
		s.StatusMessage = status
	})

	go func() {
		defer m.release(name)

		ctx, done := context.WithTimeout(m.base(), m.Timeout)
		defer done()

		res, err := fn(ctx)
		if err != nil {
			res = api.OperationResult{Error: err.Error()}
		}
		if !res.Success {
			m.publish(func(s *State) {
				s.Loading = false
				s.StatusMessage = res.Error
			})
			m.events.Publish(Event{Kind: EventOperationFailed, Message: res.Error})
			return
		}

		m.publish(func(s *State) { s.StatusMessage = "" })
		if isCreate {
			m.events.Publish(Event{Kind: EventContainerCreated})
		}
		m.Refresh() // the refresh cycle clears Loading
	}()
}

// fail reports a locally rejected action: status plus a notification,
// no RPC issued and Loading untouched.
func (m *Manager) fail(msg string) {
	m.publish(func(s *State) { s.StatusMessage = msg })
	m.events.Publish(Event{Kind: EventOperationFailed, Message: msg})
}

func (m *Manager) acquire(name string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.busy[name]; ok {
		return false
	}
	m.busy[name] = struct{}{}
	return true
}

func (m *Manager) release(name string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.busy, name)
}

func (m *Manager) base() context.Context {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.baseCtx == nil {
		return context.Background()
	}
	return m.baseCtx
}

// publish is the single mutation point for the published snapshot.
func (m *Manager) publish(fn func(*State)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s := m.state.Get()
	fn(&s)
	m.state.Swap(s)
}
