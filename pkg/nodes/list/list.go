// Package list provides node kinds operating on lists.
package list

import (
	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/schema"
)

const KindFirst = "List/First"

// Register adds the list kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindFirst, "First element of a list, or nothing for an empty list.", catalog.Decoded[First]())
}

// First declares the first element of a list. It has no behavior of its own;
// an Implementation installs it.
type First struct {
	In  domain.PortRef `mapstructure:"in"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *First) Kind() string { return KindFirst }

func (n *First) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("List", "in", schema.Arr(), n.In),
		domain.DataOut("First", "out", schema.Und(), n.Out),
	}
}
