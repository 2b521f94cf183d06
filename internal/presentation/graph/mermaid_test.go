package graph_test

import (
	"testing"

	"github.com/aretw0/flow/internal/presentation/graph"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	def := domain.GraphDefinition{
		Name: "g",
		Nodes: []domain.NodeDescription{
			{"type": "Nesting/Control Input", "name": "go", "out": 1},
			{"type": "Value", "value": true, "out": 2},
			{"type": "Logic/Not", "in": 2, "out": 3},
			{"type": "Util/Probe", "label": "hi", "in": 1, "in_data": 3},
		},
	}
	g, err := nodes.Catalog().Build(def, nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes and Wires",
			contains: []string{
				"graph LR\n",
				`n0(("Nesting/Control Input <br/> go"))`,
				`n1[/"Value"/]`,
				`n2["Logic/Not"]`,
				`n1 -- "out → in" --> n2`,
				`n2 -- "out → in_data" --> n3`,
				`n0 -. "out → in" .-> n3`,
			},
			excludes: []string{"Overlay Styles"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Active: []int{3, 3, 9}},
			contains: []string{
				"classDef active",
				"class n3 active;",
			},
			excludes: []string{"class n9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(g, tt.overlay)
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, out, e)
			}
		})
	}
}
