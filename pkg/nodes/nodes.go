// Package nodes registers the built-in node kinds.
package nodes

import (
	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/nodes/control"
	"github.com/aretw0/flow/pkg/nodes/list"
	"github.com/aretw0/flow/pkg/nodes/logic"
	"github.com/aretw0/flow/pkg/nodes/nesting"
	"github.com/aretw0/flow/pkg/nodes/radio"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/aretw0/flow/pkg/nodes/vector2"
)

// Register adds every built-in kind to c.
func Register(c *catalog.Catalog) {
	util.Register(c)
	control.Register(c)
	logic.Register(c)
	list.Register(c)
	vector2.Register(c)
	radio.Register(c)
	nesting.Register(c)
}

// Catalog returns a new catalog holding the built-in kinds.
func Catalog() *catalog.Catalog {
	c := catalog.New()
	Register(c)
	return c
}
