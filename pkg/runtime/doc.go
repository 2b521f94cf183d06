/*
Package runtime gives a graph of declared nodes its running meaning.

A Graph is initialized against a Scope. The Scope resolves port references into
cells: DataPath cells are lazily evaluated, pull-based values; ControlPath cells
are push-based signals with ordered fan-out. During Initialize every node resolves
its ports and installs producers on its data outputs and handlers on its control
inputs, either directly (Behavior) or through a Chain of registered
Implementations. Afterwards an external trigger emits a ControlPath, which walks
the wiring synchronously and depth-first; handlers may pull DataPaths, which in
turn pull their upstream cells on the same call stack.

# Lifecycle

	scope := runtime.NewScope(runtime.WithImplementations(chain))
	if err := graph.Initialize(scope); err != nil {
		// structural error (unresolved port, type mismatch, no implementation):
		// no node ran and the scope is already shut down
	}
	err := scope.Trigger(start)        // evaluation errors surface here
	value, err := scope.Read(result)
	_ = graph.Shutdown(scope)          // drops all per-node state; cells fail afterwards

A Scope belongs to exactly one execution. Running the same Graph twice, or
concurrently, takes one Scope per run; nothing but the read-only node
declarations and the Implementation chain is shared between them.
*/
package runtime
