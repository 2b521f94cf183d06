package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
)

// Overlay contains run data to visualize on the graph.
type Overlay struct {
	// Active holds the indexes of nodes that saw at least one signal.
	Active []int
}

type endpoint struct {
	node int
	key  string
}

// GenerateMermaid produces a Mermaid flowchart of g. Nodes are numbered by
// declaration order. It applies semantic styling:
// - Exported ports: ((Circle))
// - Process/Exec: [[Subroutine]]
// - Value: [/Parallelogram/]
// - Default: [Rectangle]
// Data wires are solid arrows and control wires dotted ones, labelled with
// the port keys they join.
func GenerateMermaid(g *runtime.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	var refs []domain.PortRef
	outs := make(map[domain.PortRef][]endpoint)
	ins := make(map[domain.PortRef][]endpoint)
	data := make(map[domain.PortRef]bool)

	for i, node := range g.Nodes {
		opener, closer := "[", "]"
		label := node.Kind()
		switch {
		case isExported(node):
			opener, closer = "((", "))"
			label = fmt.Sprintf("%s <br/> %s", node.Kind(), node.(runtime.Exported).External().Name)
		case node.Kind() == "Process/Exec":
			opener, closer = "[[", "]]"
		case node.Kind() == "Value":
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    n%d%s\"%s\"%s\n", i, opener, escape(label), closer)

		for _, p := range node.Ports() {
			if !p.Ref.Wired() {
				continue
			}
			if _, seen := outs[p.Ref]; !seen {
				if _, seen := ins[p.Ref]; !seen {
					refs = append(refs, p.Ref)
				}
			}
			ep := endpoint{node: i, key: p.Key}
			if p.Direction.IsInput() {
				ins[p.Ref] = append(ins[p.Ref], ep)
			} else {
				outs[p.Ref] = append(outs[p.Ref], ep)
			}
			if p.Direction.IsData() {
				data[p.Ref] = true
			}
		}
	}

	for _, ref := range refs {
		for _, from := range outs[ref] {
			for _, to := range ins[ref] {
				label := escape(from.key + " → " + to.key)
				if data[ref] {
					fmt.Fprintf(&sb, "    n%d -- \"%s\" --> n%d\n", from.node, label, to.node)
				} else {
					fmt.Fprintf(&sb, "    n%d -. \"%s\" .-> n%d\n", from.node, label, to.node)
				}
			}
		}
	}

	if overlay != nil && len(overlay.Active) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[int]bool)
		for _, i := range overlay.Active {
			if seen[i] || i < 0 || i >= len(g.Nodes) {
				continue
			}
			seen[i] = true
			fmt.Fprintf(&sb, "    class n%d active;\n", i)
		}
	}

	return sb.String()
}

func isExported(n runtime.Node) bool {
	_, ok := n.(runtime.Exported)
	return ok
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
