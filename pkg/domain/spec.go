package domain

// PortSpec is the editor view of a port.
type PortSpec struct {
	Name      string    `json:"name" yaml:"name"`
	Key       string    `json:"json" yaml:"json"`
	Direction Direction `json:"type" yaml:"type"`
	Type      string    `json:"data_type,omitempty" yaml:"data_type,omitempty"`
}

// NodeSpec describes a node kind (or an exported graph) for the editor.
type NodeSpec struct {
	Name  string     `json:"name" yaml:"name"`
	Doc   string     `json:"doc,omitempty" yaml:"doc,omitempty"`
	Ports []PortSpec `json:"ports" yaml:"ports"`
}

// Spec is the full catalog served to the editor.
type Spec struct {
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
}
