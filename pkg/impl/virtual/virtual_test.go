package virtual_test

import (
	"testing"

	"github.com/aretw0/flow/internal/testutils"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/impl/virtual"
	"github.com/aretw0/flow/pkg/nodes/list"
	"github.com/aretw0/flow/pkg/nodes/logic"
	"github.com/aretw0/flow/pkg/registry"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() runtime.Chain {
	r := registry.NewRegistry()
	virtual.Register(r)
	return r.Chain()
}

func TestListFirst(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    any
		wantErr error
	}{
		{"ints", []int{4, 5}, 4, nil},
		{"decoded", []any{"a", 1}, "a", nil},
		{"array", [2]float64{0.5, 1}, 0.5, nil},
		{"empty", []any{}, nil, nil},
		{"not a list", 3, nil, domain.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutils.Start(t, chain(),
				testutils.Const(1, tt.in),
				&list.First{In: 1, Out: 2},
			)
			got, err := s.Read(2)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGreaterThanOrEqual(t *testing.T) {
	tests := []struct {
		name    string
		a, b    any
		want    bool
		wantErr error
	}{
		{"greater", 3, 2, true, nil},
		{"equal", 2, 2.0, true, nil},
		{"less", 1.5, 2, false, nil},
		{"strings", "b", "a", true, nil},
		{"mixed", "b", 1, false, domain.ErrInvalidExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutils.Start(t, chain(),
				testutils.Const(1, tt.a),
				testutils.Const(2, tt.b),
				&logic.GreaterThanOrEqual{InA: 1, InB: 2, Out: 3},
			)
			got, err := s.Read(3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeclinesOtherKinds(t *testing.T) {
	ok, err := virtual.Implementation().Install(&logic.And{}, runtime.NewScope())
	require.NoError(t, err)
	assert.False(t, ok)
}
