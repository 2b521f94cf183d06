package runtime

import (
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
)

// Producer computes the current value of a data output.
type Producer func() (any, error)

// Constant returns a Producer that always yields v.
func Constant(v any) Producer {
	return func() (any, error) { return v, nil }
}

// DataPath is a lazily evaluated data cell. The producer runs on every Get;
// nothing is cached between reads.
type DataPath struct {
	ref      domain.PortRef
	scope    *Scope
	producer Producer
}

func (p *DataPath) Ref() domain.PortRef {
	if p == nil {
		return domain.Unwired
	}
	return p.ref
}

// Installed reports whether a producer is set.
func (p *DataPath) Installed() bool { return p != nil && p.producer != nil }

// Set installs the producer. A cell accepts exactly one producer.
func (p *DataPath) Set(fn Producer) error {
	if p.scope.closed.Load() {
		return &domain.PortError{Ref: p.ref, Err: domain.ErrNotInitialized}
	}
	if p.producer != nil {
		return &domain.PortError{Ref: p.ref, Err: domain.ErrAlreadyInitialized}
	}
	p.producer = fn
	return nil
}

// Get runs the producer and returns its result. Producer errors pass through unchanged.
func (p *DataPath) Get() (any, error) {
	if p == nil {
		return nil, &domain.PortError{Ref: domain.Unwired, Err: domain.ErrPortUnresolved}
	}
	if p.scope.closed.Load() || p.producer == nil {
		return nil, &domain.PortError{Ref: p.ref, Err: domain.ErrNotInitialized}
	}
	return p.producer()
}

// GetAs pulls p and asserts the result to T.
func GetAs[T any](p *DataPath) (T, error) {
	var zero T
	v, err := p.Get()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &domain.PortError{Ref: p.Ref(), Err: domain.TypeMismatch(fmt.Sprintf("%T", zero), v)}
	}
	return t, nil
}
