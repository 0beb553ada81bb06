// Package broker implements the real-time connection and notification broker
// using the actor pattern.
//
// A single goroutine owns the connection registry, the per-user index, and the
// offline queues; all mutations arrive as commands on a buffered channel (no
// mutexes). Per-connection write goroutines keep transport I/O off the actor,
// so slow or dead clients degrade to send failures instead of stalling the
// loop. Two periodic sweeps (ping and stale) detect dead connections and evict
// them.
package broker
