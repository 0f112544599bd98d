// Package stubdaemon implements the kapsule daemon's HTTP contract from an
// in-memory store. It exists so the client, the orchestration layer, and
// presentation code can be exercised without a real daemon; stubd serves
// it as a standalone process.
package stubdaemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/KDE/kapsule/api"
)

type Server struct {
	// Version is reported by /v1/status.
	Version string

	// Schema is the document served by /v1/schema. Empty means unavailable.
	Schema string

	// Config is returned verbatim by /v1/config.
	Config map[string]string

	// PollTimeout bounds one /v1/events long poll. Tests shrink it.
	PollTimeout time.Duration

	// SettleDelay is how long a container stays in Starting/Stopping
	// before settling into Running/Stopped.
	SettleDelay time.Duration

	log      *logrus.Entry
	store    *store
	validate *validator.Validate

	lock   sync.Mutex
	calls  map[string]int
	faults map[string]string
	delays map[string]time.Duration
}

func New(log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		Version: "1.2.0",
		Schema:  DefaultSchemaDoc,
		Config: map[string]string{
			"default_image":     "registry.fedoraproject.org/fedora:42",
			"default_container": "",
		},
		PollTimeout: time.Second * 50,
		SettleDelay: time.Millisecond * 20,
		log:         log,
		store:       newStore(),
		validate:    validator.New(),
		calls:       map[string]int{},
		faults:      map[string]string{},
		delays:      map[string]time.Duration{},
	}
}

// Handler returns the daemon API. Paths match the real daemon's socket
// surface one for one.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/v1/status", s.getStatus)
	router.GET("/v1/containers", s.listContainers)
	router.GET("/v1/containers/:name", s.getContainer)
	router.POST("/v1/containers", s.createContainer)
	router.DELETE("/v1/containers/:name", s.deleteContainer)
	router.POST("/v1/containers/:name/start", s.startContainer)
	router.POST("/v1/containers/:name/stop", s.stopContainer)
	router.POST("/v1/containers/:name/enter", s.enterContainer)
	router.GET("/v1/schema", s.getSchema)
	router.GET("/v1/config", s.getConfig)
	router.GET("/v1/events", s.getEvents)
	return s.withLogging(router)
}

// Seed inserts containers directly into the store without emitting events.
func (s *Server) Seed(containers ...api.Container) {
	for _, c := range containers {
		s.store.Put(c, api.DefaultContainerOptions())
	}
}

// Calls reports how many times the named operation was invoked. Operation
// names: status, list, get, create, delete, start, stop, enter, schema,
// config, events.
func (s *Server) Calls(op string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[op]
}

// Fail makes the named operation report the given daemon-side failure
// until cleared with an empty message. Mutating operations decline via
// their result record; reads respond 500.
func (s *Server) Fail(op, msg string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if msg == "" {
		delete(s.faults, op)
		return
	}
	s.faults[op] = msg
}

// Delay adds artificial latency to the named operation.
func (s *Server) Delay(op string, d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.delays[op] = d
}

// EmitError pushes an unsolicited error event, as the daemon does when
// something fails outside any client call.
func (s *Server) EmitError(msg string) {
	s.store.Append(api.Event{Kind: api.EventError, Message: msg})
}

// SetContainerState transitions a container out of band and emits the
// matching state-change event.
func (s *Server) SetContainerState(name string, state api.ContainerState) {
	if s.store.SetState(name, state) {
		s.stateChanged(name)
	}
}

func (s *Server) begin(op string, r *http.Request) (fault string) {
	s.lock.Lock()
	s.calls[op]++
	fault = s.faults[op]
	delay := s.delays[op]
	s.lock.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
	}
	return fault
}

func (s *Server) stateChanged(name string) {
	s.store.Append(api.Event{Kind: api.EventContainerStateChanged, Name: name})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("status", r); fault != "" {
		writeError(w, 500, fault)
		return
	}
	writeJSON(w, map[string]string{"version": s.Version})
}

func (s *Server) listContainers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("list", r); fault != "" {
		writeError(w, 500, fault)
		return
	}
	writeJSON(w, s.store.List())
}

func (s *Server) getContainer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if fault := s.begin("get", r); fault != "" {
		writeError(w, 500, fault)
		return
	}
	c, ok := s.store.Get(p.ByName("name"))
	if !ok {
		writeError(w, 404, "no such container")
		return
	}
	writeJSON(w, c)
}

type createRequest struct {
	Name    string         `json:"name" validate:"required,hostname_rfc1123"`
	Image   string         `json:"image"`
	Options map[string]any `json:"options"`
}

func (s *Server) createContainer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("create", r); fault != "" {
		writeJSON(w, api.OperationResult{Success: false, Error: fault})
		return
	}

	req := createRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		msg := fmt.Sprintf("invalid container name %q", req.Name)
		if strings.TrimSpace(req.Name) == "" {
			msg = "Container name is required."
		}
		writeJSON(w, api.OperationResult{Success: false, Error: msg})
		return
	}

	opts, err := api.OptionsFromWireMap(req.Options)
	if err != nil {
		writeJSON(w, api.OperationResult{Success: false, Error: err.Error()})
		return
	}

	image := req.Image
	if image == "" {
		image = s.Config["default_image"]
	}

	c := api.Container{
		Name:    req.Name,
		State:   api.StateStopped,
		Image:   image,
		Created: time.Now().UTC().Truncate(time.Second),
		Mode:    modeForOptions(opts),
	}
	if !s.store.Put(c, opts) {
		writeJSON(w, api.OperationResult{Success: false, Error: fmt.Sprintf("container %q already exists", req.Name)})
		return
	}

	op := uuid.NewString()
	s.store.Append(api.Event{Kind: api.EventOperationProgress, Operation: op, Message: "Building root filesystem…", Level: api.MessageDim})
	s.stateChanged(req.Name)
	s.store.Append(api.Event{Kind: api.EventOperationProgress, Operation: op, Message: "Container created.", Level: api.MessageSuccess})
	s.log.Infof("created container %q from image %q", req.Name, image)

	writeJSON(w, api.OperationResult{Success: true})
}

func modeForOptions(opts api.ContainerOptions) api.ContainerMode {
	switch {
	case opts.DbusMux:
		return api.ModeDbusMux
	case opts.SessionMode:
		return api.ModeSession
	default:
		return api.ModeDefault
	}
}

func (s *Server) deleteContainer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if fault := s.begin("delete", r); fault != "" {
		writeJSON(w, api.OperationResult{Success: false, Error: fault})
		return
	}

	name := p.ByName("name")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	c, ok := s.store.Get(name)
	if !ok {
		writeJSON(w, api.OperationResult{Success: false, Error: "no such container"})
		return
	}
	if c.State == api.StateRunning && !force {
		writeJSON(w, api.OperationResult{Success: false, Error: fmt.Sprintf("container %q is running", name)})
		return
	}

	s.store.Delete(name)
	s.stateChanged(name)
	s.log.Infof("deleted container %q", name)
	writeJSON(w, api.OperationResult{Success: true})
}

func (s *Server) startContainer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if fault := s.begin("start", r); fault != "" {
		writeJSON(w, api.OperationResult{Success: false, Error: fault})
		return
	}

	name := p.ByName("name")
	c, ok := s.store.Get(name)
	if !ok {
		writeJSON(w, api.OperationResult{Success: false, Error: "no such container"})
		return
	}
	if c.State == api.StateRunning || c.State == api.StateStarting {
		writeJSON(w, api.OperationResult{Success: false, Error: fmt.Sprintf("container %q is already running", name)})
		return
	}

	s.store.SetState(name, api.StateStarting)
	s.stateChanged(name)
	time.AfterFunc(s.SettleDelay, func() {
		if s.store.SetState(name, api.StateRunning, api.StateStarting) {
			s.stateChanged(name)
		}
	})
	writeJSON(w, api.OperationResult{Success: true})
}

func (s *Server) stopContainer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if fault := s.begin("stop", r); fault != "" {
		writeJSON(w, api.OperationResult{Success: false, Error: fault})
		return
	}

	name := p.ByName("name")
	c, ok := s.store.Get(name)
	if !ok {
		writeJSON(w, api.OperationResult{Success: false, Error: "no such container"})
		return
	}
	if c.State == api.StateStopped || c.State == api.StateStopping {
		writeJSON(w, api.OperationResult{Success: false, Error: fmt.Sprintf("container %q is not running", name)})
		return
	}

	s.store.SetState(name, api.StateStopping)
	s.stateChanged(name)
	time.AfterFunc(s.SettleDelay, func() {
		if s.store.SetState(name, api.StateStopped, api.StateStopping) {
			s.stateChanged(name)
		}
	})
	writeJSON(w, api.OperationResult{Success: true})
}

func (s *Server) enterContainer(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if fault := s.begin("enter", r); fault != "" {
		writeJSON(w, api.EnterResult{Success: false, Error: fault})
		return
	}

	name := p.ByName("name")
	c, ok := s.store.Get(name)
	if !ok {
		writeJSON(w, api.EnterResult{Success: false, Error: "no such container"})
		return
	}
	if c.State != api.StateRunning {
		writeJSON(w, api.EnterResult{Success: false, Error: fmt.Sprintf("container %q is not running", name)})
		return
	}

	writeJSON(w, api.EnterResult{Success: true, ExecArgs: []string{"/usr/libexec/kapsule/enter", name}})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("schema", r); fault != "" {
		writeError(w, 500, fault)
		return
	}
	if s.Schema == "" {
		writeError(w, 404, "schema unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(s.Schema))
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("config", r); fault != "" {
		writeError(w, 500, fault)
		return
	}
	writeJSON(w, s.Config)
}

// getEvents long-polls the event feed. A zero or absent cursor returns
// immediately with the feed head so new clients can sync without replaying
// history; otherwise the request blocks until newer events exist or the
// poll window closes with an empty page.
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if fault := s.begin("events", r); fault != "" {
		writeError(w, 500, fault)
		return
	}

	cursor, _ := strconv.ParseInt(r.URL.Query().Get("cursor"), 10, 64)

	ctx, done := context.WithTimeout(r.Context(), s.PollTimeout)
	defer done()
	watcher := s.store.WatchHead(ctx)

	for {
		events, head := s.store.EventsSince(cursor)
		if cursor == 0 {
			writeJSON(w, api.EventPage{Cursor: head})
			return
		}
		if len(events) > 0 {
			writeJSON(w, api.EventPage{Cursor: head, Events: events})
			return
		}

		select {
		case <-ctx.Done():
			writeJSON(w, api.EventPage{Cursor: cursor})
			return
		case <-watcher:
		}
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wp := &responseProxy{ResponseWriter: w, Status: 200}
		next.ServeHTTP(wp, r)
		s.log.Debugf("%s %s - %d", r.Method, r.URL, wp.Status)
	})
}

// responseProxy retains the response status for logging purposes.
type responseProxy struct {
	http.ResponseWriter
	Status int
}

func (r *responseProxy) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
