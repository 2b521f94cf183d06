package runtime

import (
	"github.com/aretw0/flow/pkg/domain"
)

// Handler reacts to a control signal.
type Handler func() error

type consumer struct {
	owner   Node
	handler Handler
}

// ControlPath is a push-based control cell with ordered fan-out.
type ControlPath struct {
	ref       domain.PortRef
	scope     *Scope
	consumers []consumer
}

func (p *ControlPath) Ref() domain.PortRef {
	if p == nil {
		return domain.Unwired
	}
	return p.ref
}

// Consumers returns the number of registered handlers.
func (p *ControlPath) Consumers() int {
	if p == nil {
		return 0
	}
	return len(p.consumers)
}

// Declare registers handler on behalf of owner. Every node may register one
// handler per cell; handlers run in registration order.
func (p *ControlPath) Declare(owner Node, handler Handler) error {
	if p.scope.closed.Load() {
		return &domain.PortError{Ref: p.ref, Err: domain.ErrNotInitialized}
	}
	for _, c := range p.consumers {
		if owner != nil && c.owner == owner {
			return &domain.PortError{Ref: p.ref, Kind: owner.Kind(), Err: domain.ErrAlreadyInitialized}
		}
	}
	p.consumers = append(p.consumers, consumer{owner: owner, handler: handler})
	return nil
}

// Emit runs the handlers registered at call time, in order, on the calling
// goroutine. The first failing handler aborts the emission and its error is
// returned unchanged. Emitting a nil cell does nothing.
func (p *ControlPath) Emit() error {
	if p == nil {
		return nil
	}
	if p.scope.closed.Load() {
		return &domain.PortError{Ref: p.ref, Err: domain.ErrNotInitialized}
	}
	consumers := p.consumers
	var err error
	for _, c := range consumers {
		if err = c.handler(); err != nil {
			break
		}
	}
	if h := p.scope.hooks.OnSignal; h != nil {
		h(p.scope.ctx, &domain.SignalEvent{
			EventBase: p.scope.event(domain.EventSignal),
			Ref:       p.ref,
			Consumers: len(consumers),
			Err:       err,
		})
	}
	return err
}
