package util_test

import (
	"testing"

	"github.com/aretw0/flow/internal/testutils"
	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Decode(t *testing.T) {
	c := catalog.New()
	util.Register(c)

	tests := []struct {
		name    string
		desc    domain.NodeDescription
		want    any
		wantErr bool
	}{
		{"untyped", domain.NodeDescription{"type": "Value", "value": "hi", "out": 1}, "hi", false},
		{"int from float", domain.NodeDescription{"type": "Value", "value": 3.0, "data_type": "int", "out": 1}, 3, false},
		{"vec2 from list", domain.NodeDescription{"type": "Value", "value": []any{1, 2}, "data_type": "vec2", "out": 1}, domain.Int2{X: 1, Y: 2}, false},
		{"bit mismatch", domain.NodeDescription{"type": "Value", "value": "yes", "data_type": "bit", "out": 1}, nil, true},
		{"unknown tag", domain.NodeDescription{"type": "Value", "value": 1, "data_type": "f32", "out": 1}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.Node(tt.desc, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			s := testutils.Start(t, nil, n)
			assert.Equal(t, tt.want, testutils.Read(t, s, 1))
		})
	}
}

func TestProbe_RecordsAndPassesOn(t *testing.T) {
	var log []string
	probe := &util.Probe{Label: "p", In: 1, Data: 2, Out: 3}
	g := runtime.NewGraph("probe",
		testutils.Source(1),
		&util.Value{Value: 42, Out: 2},
		probe,
		testutils.Record("after", 3, &log),
	)
	s := runtime.NewScope()
	require.NoError(t, g.Initialize(s))

	require.NoError(t, s.Trigger(1))
	require.NoError(t, s.Trigger(1))

	r := probe.Read(s)
	assert.Equal(t, "p", r.Label)
	assert.Equal(t, 2, r.Hits)
	assert.Equal(t, []any{42, 42}, r.Values)
	assert.Equal(t, []string{"after", "after"}, log)
	assert.Equal(t, []*util.Probe{probe}, util.Probes(g))

	require.NoError(t, g.Shutdown(s))
	assert.Equal(t, 0, probe.Read(s).Hits)
}
