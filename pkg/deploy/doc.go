/*
Package deploy keeps graphs deployed: each stored definition is built from the
node catalog and initialized in its own long-lived scope.

The Manager serializes operations on one graph ID with reference-counted
in-process locks and, when configured, a ports.DistributedLocker shared by
replicas. It also serves as the runtime.Directory through which composite
nodes find the graphs they embed.

	m := deploy.NewManager(memory.NewStore(), nodes.Catalog(), deploy.WithLogger(logger))
	if err := m.Update(ctx, def); err != nil { ... }
	err := m.Trigger(ctx, def.ID, 1)
*/
package deploy
