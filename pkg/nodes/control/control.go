// Package control provides node kinds that steer control flow and route data.
package control

import (
	"fmt"
	"sort"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
)

const (
	KindBranch = "Control/Branch"
	KindFor    = "Control/For"
	KindSelect = "Control/Select"
)

// Register adds the control kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindBranch, "Emits the output mapped to the current value, or the default.", catalog.Decoded[Branch]())
	c.Register(KindFor, "Emits the body once per element of a closed integer range, then the output.", catalog.Decoded[For]())
	c.Register(KindSelect, "Yields the input mapped to the current selector, or the default.", catalog.Decoded[Select]())
}

// matchKey is how values are compared against the string keys of a mapping.
func matchKey(v any) string {
	return fmt.Sprint(v)
}

// normalize converts decoded mapping keys to their match form.
func normalize(in map[any]domain.PortRef) (map[string]domain.PortRef, []string, error) {
	out := make(map[string]domain.PortRef, len(in))
	for k, ref := range in {
		key := matchKey(k)
		if prev, dup := out[key]; dup && prev != ref {
			return nil, nil, fmt.Errorf("mapping key %q given twice", key)
		}
		out[key] = ref
	}
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys, nil
}
