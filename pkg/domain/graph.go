package domain

import "github.com/google/uuid"

// NodeDescription is a raw, already-deserialized node.
// The "type" key names the node kind; the remaining keys hold port refs and settings.
type NodeDescription map[string]any

// KindKey is the description key holding the node kind.
const KindKey = "type"

// Kind returns the node kind named by the description.
func (d NodeDescription) Kind() string {
	kind, _ := d[KindKey].(string)
	return kind
}

// GraphDefinition is the persisted form of a graph.
type GraphDefinition struct {
	ID    uuid.UUID         `json:"id" yaml:"id" mapstructure:"id"`
	Name  string            `json:"name" yaml:"name" mapstructure:"name"`
	Doc   string            `json:"doc,omitempty" yaml:"doc,omitempty" mapstructure:"doc"`
	Nodes []NodeDescription `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// StableID derives a deterministic ID from a graph name, for definitions
// authored without one (files, Loam documents).
func StableID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("flow:graph:"+name))
}
