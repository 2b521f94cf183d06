package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the event.
type EventType string

const (
	EventGraphInitialize EventType = "graph_initialize"
	EventGraphShutdown   EventType = "graph_shutdown"
	EventNodeInstall     EventType = "node_install"
	EventSignal          EventType = "signal"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ScopeID   uuid.UUID `json:"scope_id"`
}

// GraphEvent reports a graph lifecycle transition within one scope.
type GraphEvent struct {
	EventBase
	GraphID   uuid.UUID `json:"graph_id"`
	GraphName string    `json:"graph_name"`
	Nodes     int       `json:"nodes"`
	Err       error     `json:"-"`
}

// NodeEvent reports how a node's behavior was installed.
type NodeEvent struct {
	EventBase
	NodeKind string `json:"node_kind"`
	// Implementation is empty for compiled-in behavior.
	Implementation string `json:"implementation,omitempty"`
}

// SignalEvent reports a control emission.
type SignalEvent struct {
	EventBase
	Ref       PortRef `json:"ref"`
	Consumers int     `json:"consumers"`
	Err       error   `json:"-"`
}

// LifecycleHooks defines callbacks for runtime observability.
// Every field is optional.
type LifecycleHooks struct {
	OnGraphInitialize func(context.Context, *GraphEvent)
	OnGraphShutdown   func(context.Context, *GraphEvent)
	OnNodeInstall     func(context.Context, *NodeEvent)
	OnSignal          func(context.Context, *SignalEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnGraphInitialize: chain(h.OnGraphInitialize, other.OnGraphInitialize),
		OnGraphShutdown:   chain(h.OnGraphShutdown, other.OnGraphShutdown),
		OnNodeInstall:     chain(h.OnNodeInstall, other.OnNodeInstall),
		OnSignal:          chain(h.OnSignal, other.OnSignal),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
