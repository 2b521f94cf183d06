package runtime

import "github.com/aretw0/flow/pkg/domain"

// Input resolves an optional data input. An unwired ref yields a nil cell,
// whose Get fails with ErrPortUnresolved.
func (s *Scope) Input(ref domain.PortRef) (*DataPath, error) {
	if !ref.Wired() {
		return nil, nil
	}
	return s.ResolveData(ref)
}

// Signal resolves an optional control output. An unwired ref yields a nil
// cell, whose Emit does nothing.
func (s *Scope) Signal(ref domain.PortRef) (*ControlPath, error) {
	if !ref.Wired() {
		return nil, nil
	}
	return s.ResolveControl(ref)
}

// Provide installs producer on the data output ref. Unwired outputs are skipped.
func (s *Scope) Provide(ref domain.PortRef, producer Producer) error {
	if !ref.Wired() {
		return nil
	}
	p, err := s.ResolveData(ref)
	if err != nil {
		return err
	}
	return p.Set(producer)
}

// On declares handler for owner on the control input ref. Unwired inputs are skipped.
func (s *Scope) On(owner Node, ref domain.PortRef, handler Handler) error {
	if !ref.Wired() {
		return nil
	}
	p, err := s.ResolveControl(ref)
	if err != nil {
		return err
	}
	return p.Declare(owner, handler)
}
