/*
Package ports defines the driven ports (interfaces) of the flow runtime.

These interfaces decouple graph deployment from external implementations,
allowing definitions to live in memory, Redis, plain files or a Loam
repository, and deployments to be coordinated across replicas.

# Key Interfaces

  - GraphStore: persists graph definitions by ID (memory, Redis, files).
  - GraphSource: read-only listing of graph definitions (Loam, files).
  - DistributedLocker: distributed locking for concurrent access to one deployment.
*/
package ports
