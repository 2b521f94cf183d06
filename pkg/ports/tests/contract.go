package tests

import (
	"context"
	"testing"

	"github.com/aretw0/flow/pkg/ports"
)

// GraphSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.GraphSource.
// want maps every graph name the source must yield to its node count.
func GraphSourceContractTest(t *testing.T, source ports.GraphSource, want map[string]int) {
	t.Helper()

	defs, err := source.Graphs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error listing graphs: %v", err)
	}

	// 1. Every expected graph is present with its nodes
	t.Run("Graphs_Content", func(t *testing.T) {
		lookup := make(map[string]int)
		for _, def := range defs {
			lookup[def.Name] = len(def.Nodes)
		}
		for name, nodes := range want {
			got, ok := lookup[name]
			if !ok {
				t.Errorf("graph %s missing from source", name)
				continue
			}
			if got != nodes {
				t.Errorf("graph %s: expected %d nodes, got %d", name, nodes, got)
			}
		}
	})

	// 2. No extra graphs, stable unique IDs
	t.Run("Graphs_IDs", func(t *testing.T) {
		if len(defs) != len(want) {
			t.Errorf("expected %d graphs, got %d", len(want), len(defs))
		}
		seen := make(map[string]bool)
		for _, def := range defs {
			id := def.ID.String()
			if seen[id] {
				t.Errorf("duplicate graph ID %s", id)
			}
			seen[id] = true
		}

		again, err := source.Graphs(context.Background())
		if err != nil {
			t.Fatalf("unexpected error listing graphs again: %v", err)
		}
		ids := make(map[string]string)
		for _, def := range defs {
			ids[def.Name] = def.ID.String()
		}
		for _, def := range again {
			if ids[def.Name] != def.ID.String() {
				t.Errorf("graph %s changed ID between listings", def.Name)
			}
		}
	})
}
