/*
Package dsl provides a Go DSL for programmatically constructing flow graphs.

It allows developers to wire graphs with named wires instead of hand-numbered
port references, using a fluent builder instead of external YAML or JSON
files. This is particularly useful for dynamic graph generation and unit
testing.

Example usage:

	b := dsl.New("toggle")

	b.Add("Nesting/Control Input").Set("name", "go").Wire("out", "tick")
	b.Value("on", true)
	b.Add("Logic/Not").Wire("in", "on").Wire("out", "off")
	b.Add("Control/Branch").
		Wire("in", "tick").
		Wire("in_value", "off").
		Case("out", false, "was_on").
		Wire("out_default", "was_off")

	def, err := b.Build()
	// ... deploy def, then trigger b.Ref("tick")
*/
package dsl
