// Package schema defines the closed set of semantic type tags carried by data ports.
//
// Tags are used by the graph loader to validate wiring before a graph runs and by
// nodes to check the runtime shape of the values they read:
//
//	schema.Bit()  // boolean
//	schema.Int()  // integer
//	schema.Arr()  // slice or array
//	schema.Vec2() // two-component vector
//	schema.Und()  // undetermined, accepts anything
//
// Two ports may be wired together when their tags are Compatible, i.e. when either
// side is Und or both carry the same tag.
//
// Tags can be parsed from their names, which is how the editor spec refers to them:
//
//	typ, err := schema.ParseType("vec2")
//
// This package has no dependencies beyond the Go standard library so that it can be
// imported by every layer, including the pure domain package.
package schema
