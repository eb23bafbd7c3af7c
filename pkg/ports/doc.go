/*
Package ports defines the driven ports (interfaces) for the Daydream core.

These interfaces decouple the session state machine from external implementations,
allowing it to work with various storage backends, language-model services and
lock providers.

# Key Interfaces

  - StateStore: Persists the serialized session record under a key (the "named slot").
  - Ideator: The expand and complete collaborators backed by a language model.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
