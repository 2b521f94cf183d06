package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/flow/pkg/domain"
)

// allScopes is the subscription key receiving every event.
const allScopes = "*"

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ScopeID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for events of scopeID ("*" for all scopes).
// The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(scopeID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[scopeID]; !ok {
		sm.subscribers[scopeID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[scopeID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[scopeID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, scopeID)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of scopeID and of every scope.
func (sm *StreamManager) Broadcast(scopeID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{scopeID, allScopes} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "scope_id", scopeID)
			}
		}
	}
}

// Hooks returns lifecycle hooks broadcasting every runtime event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(base domain.EventBase, event any) {
		bytes, err := json.Marshal(event)
		if err != nil {
			sm.logger.Warn("SSE: event encode failed", "type", base.Type, "err", err)
			return
		}
		sm.Broadcast(base.ScopeID.String(), string(bytes))
	}
	return domain.LifecycleHooks{
		OnGraphInitialize: func(_ context.Context, e *domain.GraphEvent) { publish(e.EventBase, e) },
		OnGraphShutdown:   func(_ context.Context, e *domain.GraphEvent) { publish(e.EventBase, e) },
		OnNodeInstall:     func(_ context.Context, e *domain.NodeEvent) { publish(e.EventBase, e) },
		OnSignal:          func(_ context.Context, e *domain.SignalEvent) { publish(e.EventBase, e) },
	}
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional scope_id query parameter narrows the stream to one scope.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		scopeID = allScopes
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to runtime events", "scope_id", scopeID)
	ch, cancel := s.Streams.Subscribe(scopeID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
