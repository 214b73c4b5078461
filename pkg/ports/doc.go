/*
Package ports defines the driven ports (interfaces) for the hexcast engine.

These interfaces decouple the casting core and the session orchestration from
external implementations, allowing the engine to work with various storage
backends and interpretation services.

# Key Interfaces

  - Interpreter: Produces interpretation text for a hexagram and an intention.
  - HistoryStore: Records completed sessions and lists them per user.
  - SessionStore: Persists and loads SessionState snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
