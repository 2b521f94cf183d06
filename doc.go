/*
Package flow is a dataflow graph runtime for building programs out of typed,
wired nodes.

Graphs are made of nodes whose ports carry either data or control. Data is
pulled lazily: reading an input asks the producer wired to it for a value.
Control is pushed synchronously: emitting an output runs every handler wired
to it, in order, on the calling goroutine. All per-execution state lives in a
Scope, so one graph can run in many scopes at once without interference.

# Concept

A node either implements its own behavior or is declaration-only, in which
case an Implementation registered with the engine installs it. Graphs export
ports through nesting nodes and can then be used as node kinds by other
graphs.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/flow"
		"github.com/aretw0/flow/pkg/dsl"
	)

	func main() {
		b := dsl.New("negate")
		b.Add("Nesting/Control Input").Set("name", "go").Wire("out", "go")
		b.Value("in", true)
		b.Add("Logic/Not").Wire("in", "in").Wire("out", "out")
		b.Probe("result", "go", "out")

		def, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		eng := flow.New()
		defer eng.Shutdown()

		readings, err := eng.Run(context.Background(), def, b.Ref("go"), 1)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(readings[0].Values) // [false]
	}
*/
package flow
