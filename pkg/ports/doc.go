/*
Package ports defines the driven ports (interfaces) for the Waypoint board.

These interfaces decouple the drawing core from external implementations, allowing
run timelines to live in memory, on disk or in Redis.

# Key Interfaces

  - TimelineStore: Responsible for persisting and loading the timeline of a run.
  - DistributedLocker: Provides distributed locking for boards shared between replicas.
*/
package ports
