/*
Package domain contains the core vocabulary of the flow runtime.

It defines the values shared by every layer: port references and directions,
port declarations with their semantic type tags, graph definitions as they come
out of a loader, the editor spec exported for node kinds, lifecycle events and
the sentinel errors of the runtime. This package is kept pure and free of I/O.

# Key Entities

  - PortRef: a small integer naming a wire. Ports that carry the same ref in one graph are connected.
  - Port: a declared input or output slot of a node (name, key, direction, type tag, ref).
  - GraphDefinition: an identified, named, ordered list of raw node descriptions.
  - NodeSpec / Spec: editor metadata for node kinds and exported graphs.
  - Int2, Float2, Double2: two-component vector values carried by "vec2" ports.
*/
package domain
