// Package syncer keeps the local cache and the remote backend converging.
//
// Child entities (installations, contacts, budgets, files) are written
// locally first and pushed when the backend is reachable; projects are
// pushed first so a locally minted id can be replaced by the backend's UUID
// before anything else references it. Whatever cannot be pushed waits in a
// FIFO queue that ProcessQueue replays. The queue is rebuilt from the dirty
// flags of the cache on Session.Start, so nothing is lost across restarts.
package syncer
