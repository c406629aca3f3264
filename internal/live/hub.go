// Package live serves assistant widgets over websockets. Every connection
// owns one widget for its lifetime.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mdnooraj/folio/internal/assistant"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Event is a client-to-server message.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Hub upgrades requests to websockets and tracks the live sessions.
type Hub struct {
	src        assistant.Source
	widgetOpts []assistant.Option
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closed   bool
}

// NewHub creates a Hub whose widgets answer from src. widgetOpts are
// applied to every widget it mounts.
func NewHub(src assistant.Source, logger *slog.Logger, widgetOpts ...assistant.Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		src:        src,
		widgetOpts: widgetOpts,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[uuid.UUID]*session),
	}
}

// Sessions reports the number of connected widgets.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown disconnects every session and rejects new ones. Each widget is
// closed as its connection winds down.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.widget.Close()
		s.conn.Close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.New()
	s := &session{
		id:     id,
		conn:   conn,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: h.logger.With("session", id.String()),
	}
	opts := append([]assistant.Option{
		assistant.WithLogger(s.logger),
		assistant.WithObserver(s.push),
	}, h.widgetOpts...)
	s.widget = assistant.New(h.src, opts...)

	if !h.register(s) {
		s.widget.Close()
		conn.Close()
		return
	}

	s.push(s.widget.State())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.readLoop()

	s.widget.Close()
	close(s.done)
	<-writerDone
	conn.Close()
	h.unregister(s)
}

func (h *Hub) register(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	s.logger.Debug("assistant session opened", "sessions", len(h.sessions))
	return true
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.id)
	s.logger.Debug("assistant session closed", "sessions", len(h.sessions))
}

type session struct {
	id     uuid.UUID
	conn   *websocket.Conn
	widget *assistant.Widget
	logger *slog.Logger

	mu     sync.Mutex
	latest *assistant.State

	wake chan struct{}
	done chan struct{}
}

// push replaces the pending snapshot and wakes the writer. Intermediate
// snapshots the writer has not sent yet are dropped.
func (s *session) push(st assistant.State) {
	s.mu.Lock()
	s.latest = &st
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) take() *assistant.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.latest
	s.latest = nil
	return st
}

func (s *session) readLoop() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Debug("ignoring malformed event", "error", err)
			continue
		}
		s.apply(ev)
	}
}

func (s *session) apply(ev Event) {
	switch ev.Type {
	case "toggle":
		s.widget.ToggleVisibility()
	case "draft":
		s.widget.UpdateDraft(ev.Text)
	case "submit":
		s.widget.Submit()
	default:
		s.logger.Debug("ignoring unknown event", "type", ev.Type)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-s.wake:
			st := s.take()
			if st == nil {
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(st); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				s.conn.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}
