package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{"int", 3, 3, false},
		{"int64", int64(-4), -4, false},
		{"uint8", uint8(7), 7, false},
		{"whole float", 2.0, 2, false},
		{"fractional float", 2.5, 0, true},
		{"json number", json.Number("12"), 12, false},
		{"string", "12", 0, true},
		{"nil", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ToInt(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrTypeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFloats(t *testing.T) {
	got, err := domain.ToFloats([]any{1, 2.5, float32(0.5)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 0.5}, got)

	_, err = domain.ToFloats([]any{1, "x"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = domain.ToFloats(42)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestToVec2(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    any
		wantErr bool
	}{
		{"int2 passes", domain.Int2{X: 1, Y: -2}, domain.Int2{X: 1, Y: -2}, false},
		{"pointer deref", &domain.Double2{X: 0.5}, domain.Double2{X: 0.5}, false},
		{"whole list", []any{3, 4.0}, domain.Int2{X: 3, Y: 4}, false},
		{"fractional list", []any{3, 4.5}, domain.Double2{X: 3, Y: 4.5}, false},
		{"map", map[string]any{"x": -1, "y": 2}, domain.Int2{X: -1, Y: 2}, false},
		{"map missing y", map[string]any{"x": 1}, nil, true},
		{"wrong length", []int{1, 2, 3}, nil, true},
		{"scalar", 5, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ToVec2(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrTypeMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVectorAbs(t *testing.T) {
	assert.Equal(t, domain.Int2{X: 3, Y: 4}, domain.Int2{X: -3, Y: 4}.Abs())
	assert.Equal(t, domain.Float2{X: 1.5, Y: 0}, domain.Float2{X: -1.5, Y: 0}.Abs())
	assert.Equal(t, domain.Double2{X: 2, Y: 7}, domain.Double2{X: -2, Y: -7}.Abs())
}

func TestErrorsUnwrap(t *testing.T) {
	err := &domain.NodeError{
		Index: 2,
		Kind:  "Logic/Not",
		Err:   &domain.PortError{Ref: 5, Err: domain.InvalidExpression("!3")},
	}

	assert.True(t, errors.Is(err, domain.ErrInvalidExpression))
	assert.Equal(t, "node 2 (Logic/Not): port #5: invalid expression: !3", err.Error())

	var pe *domain.PortError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, domain.PortRef(5), pe.Ref)
	assert.False(t, domain.Unwired.Wired())
	assert.Equal(t, "unwired", domain.Unwired.String())
}
