// Package inspect serves a development view into a running Wayfind
// controller: the compiled route table, the current route, a WebSocket
// stream of committed transitions, and Prometheus metrics.
package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/wayfind/pkg/router"
)

const (
	writeTimeout = 10 * time.Second

	// eventBuffer is the per-subscriber queue; slow readers drop events
	// rather than stall the pipeline.
	eventBuffer = 16
)

// Event describes one committed transition.
type Event struct {
	To     string            `json:"to"`
	From   string            `json:"from"`
	Name   string            `json:"name,omitempty"`
	Params map[string]string `json:"params,omitempty"`
	Time   time.Time         `json:"time"`
}

// RouteInfo describes one record of the table snapshot.
type RouteInfo struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	AliasOf  string `json:"aliasOf,omitempty"`
	Redirect bool   `json:"redirect,omitempty"`
}

// Server exposes a controller for inspection over HTTP.
type Server struct {
	controller *router.Controller
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	mux        *chi.Mux
	metricsH   http.Handler

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	unsubscribe func()
}

// Option configures the inspector.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler overrides the /metrics handler. Default is
// promhttp.Handler over the default registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsH = h
	}
}

// NewServer creates an inspector bound to a controller. Close releases its
// transition subscription.
func NewServer(c *router.Controller, opts ...Option) *Server {
	s := &Server{
		controller:  c,
		logger:      slog.Default(),
		metricsH:    promhttp.Handler(),
		subscribers: make(map[chan Event]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = c.AfterEach(func(to, from *router.Route) {
		s.broadcast(Event{
			To:     to.FullPath,
			From:   from.FullPath,
			Name:   to.Name,
			Params: to.Params,
			Time:   time.Now(),
		})
	})

	mux := chi.NewRouter()
	mux.Get("/routes", s.handleRoutes)
	mux.Get("/route", s.handleRoute)
	mux.Get("/events", s.handleEvents)
	mux.Method(http.MethodGet, "/metrics", s.metricsH)
	s.mux = mux
	return s
}

// Handler returns the inspector's HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Close unsubscribes from the controller and disconnects event streams.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]struct{})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	records := s.controller.Table().Records()
	infos := make([]RouteInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, RouteInfo{
			Path:     rec.Path,
			Name:     rec.Name,
			AliasOf:  rec.MatchAs,
			Redirect: rec.Redirect != nil,
		})
	}
	writeJSON(w, infos)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	route := s.controller.CurrentRoute()
	writeJSON(w, map[string]any{
		"fullPath": route.FullPath,
		"path":     route.Path,
		"name":     route.Name,
		"params":   route.Params,
		"matched":  len(route.Matched),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan Event, eventBuffer)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	go s.readLoop(conn, done)
	go s.writeLoop(conn, ch, done)
}

// readLoop discards client messages and signals when the peer goes away.
func (s *Server) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Debug("event stream read error", "error", err)
			}
			return
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, ch chan Event, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("event stream write error", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

// broadcast fans an event out to subscribers, dropping it for any whose
// buffer is full.
func (s *Server) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
