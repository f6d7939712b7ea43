/*
Package session serialises access to shared boards and their stored timelines.

The drawing core is single-threaded; adapters that serve concurrent requests
(HTTP, MCP) funnel every mutation through Manager.WithLock. A per-key mutex
covers one process, and an optional ports.DistributedLocker extends the guarantee
across replicas that share a Redis store.
*/
package session
