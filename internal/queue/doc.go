// Package queue persists import sessions and their per-file work items in
// SQLite and exposes the operations that drive their lifecycle.
//
// A session is one bulk import run with aggregate counters; its items are the
// files that survived deduplication, processed strictly in creation order.
// The Store owns schema initialization, busy-retry handling, the session
// status machine (active, completed, cancelled), the atomic pending to
// processing claim, and recovery of items left in processing by a failed
// step.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
