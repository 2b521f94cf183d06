// Package virtual supplies behavior for declaration-only node kinds through
// runtime Implementations.
package virtual

import (
	"fmt"
	"reflect"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/list"
	"github.com/aretw0/flow/pkg/nodes/logic"
	"github.com/aretw0/flow/pkg/registry"
	"github.com/aretw0/flow/pkg/runtime"
)

// Name is the name the Implementation is registered under.
const Name = "virtual"

// Register adds the virtual Implementation to r.
func Register(r *registry.Registry) {
	r.Register(Implementation())
}

// Implementation returns the Implementation for every declaration-only
// built-in kind.
func Implementation() runtime.Implementation {
	return runtime.NewImplementation(Name, func(node runtime.Node, s *runtime.Scope) (bool, error) {
		switch n := node.(type) {
		case *list.First:
			return true, installFirst(n, s)
		case *logic.GreaterThanOrEqual:
			return true, installGreaterThanOrEqual(n, s)
		}
		return false, nil
	})
}

// installFirst yields the first element of the list, or nil for an empty list.
func installFirst(n *list.First, s *runtime.Scope) error {
	in, err := s.Input(n.In)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		v, err := in.Get()
		if err != nil {
			return nil, err
		}
		rv := reflect.ValueOf(v)
		if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, domain.TypeMismatch("arr", v)
		}
		if rv.Len() == 0 {
			return nil, nil
		}
		return rv.Index(0).Interface(), nil
	})
}

func installGreaterThanOrEqual(n *logic.GreaterThanOrEqual, s *runtime.Scope) error {
	a, err := s.Input(n.InA)
	if err != nil {
		return err
	}
	b, err := s.Input(n.InB)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		av, err := a.Get()
		if err != nil {
			return nil, err
		}
		bv, err := b.Get()
		if err != nil {
			return nil, err
		}
		return greaterOrEqual(av, bv)
	})
}

func greaterOrEqual(a, b any) (bool, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as >= bs, nil
		}
	}
	af, errA := domain.ToFloat(a)
	bf, errB := domain.ToFloat(b)
	if errA != nil || errB != nil {
		return false, domain.InvalidExpression(fmt.Sprintf("%v ≥ %v", a, b))
	}
	return af >= bf, nil
}
