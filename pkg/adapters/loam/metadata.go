package loam

// GraphMetadata represents the header (frontmatter) of a graph document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
// The document body, when present, becomes the graph's doc.
type GraphMetadata struct {
	ID    string           `json:"id" mapstructure:"id"`
	Name  string           `json:"name" mapstructure:"name"`
	Doc   string           `json:"doc" mapstructure:"doc"`
	Nodes []map[string]any `json:"nodes" mapstructure:"nodes"`
}
