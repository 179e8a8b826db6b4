// Package mockagent is a scriptable stand-in for a real agent backend. It
// speaks the same HTTP+SSE protocol the client does, which makes it useful
// both for end-to-end tests and for driving the CLI without a model.
package mockagent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/logging"
)

const heartbeatInterval = 30 * time.Second

// Server plays scripted event streams in response to turn requests.
type Server struct {
	router chi.Router
	script Script

	// Delay between played events. Zero means as fast as possible.
	Delay time.Duration

	mu       sync.Mutex
	subs     map[int]chan backend.Event
	nextSub  int
	cancelCh chan struct{} // non-nil while a turn is playing
	planCh   chan bool     // non-nil while a plan awaits a decision
}

// New creates a server that answers each turn by playing script's events.
// A nil script falls back to EchoScript.
func New(script Script) *Server {
	if script == nil {
		script = EchoScript
	}
	s := &Server{
		script: script,
		subs:   make(map[int]chan backend.Event),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/turn", s.handleTurn)
	r.Post("/turn/cancel", s.handleCancel)
	r.Post("/plan/approve", s.handlePlanDecision(true))
	r.Post("/plan/reject", s.handlePlanDecision(false))
	r.Post("/usage/reset", s.handleUsageReset)
	r.Get("/events", s.handleEvents)
	s.router = r

	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SubscriberCount reports how many event streams are connected. Callers that
// need playback to be observed should wait for a subscriber before sending a
// turn; events broadcast with no streams connected are lost.
func (s *Server) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// handleTurn plays the scripted events for one turn and blocks until the
// turn settles, mirroring the real backend's send-turn semantics.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req backend.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed turn request")
		return
	}

	s.mu.Lock()
	if s.cancelCh != nil {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "turn_in_flight", "a turn is already in flight")
		return
	}
	cancel := make(chan struct{})
	s.cancelCh = cancel
	s.mu.Unlock()

	cancelled := s.play(r, cancel, s.script(req))

	s.mu.Lock()
	s.cancelCh = nil
	s.planCh = nil
	s.mu.Unlock()

	if cancelled {
		s.broadcast(backend.Cancelled{Reason: "user"})
		writeError(w, http.StatusConflict, backend.CodeTurnCancelled, "turn cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// play broadcasts the scripted events in order, pausing at plan-ready events
// until the plan is approved or rejected. It reports whether the turn was
// cancelled before the script finished.
func (s *Server) play(r *http.Request, cancel <-chan struct{}, events []backend.Event) bool {
	for _, ev := range events {
		if s.Delay > 0 {
			select {
			case <-cancel:
				return true
			case <-r.Context().Done():
				return true
			case <-time.After(s.Delay):
			}
		}

		s.broadcast(ev)

		if _, ok := ev.(backend.PlanReady); ok {
			decision := make(chan bool, 1)
			s.mu.Lock()
			s.planCh = decision
			s.mu.Unlock()

			select {
			case <-cancel:
				return true
			case <-r.Context().Done():
				return true
			case approved := <-decision:
				if !approved {
					s.broadcast(backend.Complete{StopReason: "plan_rejected"})
					return false
				}
			}
		}

		select {
		case <-cancel:
			return true
		default:
		}
	}
	return false
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cancel := s.cancelCh
	s.cancelCh = nil
	s.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": cancel != nil})
}

func (s *Server) handlePlanDecision(approved bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		decision := s.planCh
		s.planCh = nil
		s.mu.Unlock()

		if decision == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": false})
			return
		}
		decision <- approved
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleUsageReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleEvents streams broadcast events to the client as SSE frames.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	id, sub := s.subscribe()
	defer s.unsubscribe(id)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev := <-sub:
			data, err := json.Marshal(backend.EncodeEvent(ev))
			if err != nil {
				logging.Warn().Err(err).Msg("encode event failed")
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) subscribe() (int, chan backend.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan backend.Event, 64)
	s.subs[id] = ch
	return id, ch
}

func (s *Server) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// broadcast delivers an event to every connected stream. A subscriber that
// has fallen 64 events behind loses events rather than stalling playback.
func (s *Server) broadcast(ev backend.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logging.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("slow event subscriber, dropping")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
