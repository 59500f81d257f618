// Package docstore is a SQLite-backed document model.
//
// It stands in for the host application: it owns every element, parameter,
// view placement and the current selection, and it gives the bridge real
// transactions. A Tx groups every write of one action; Rollback leaves no
// trace, including id allocation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection. While a Tx is open, reads must go
// through that Tx; the bridge guarantees this by running every read and
// write of an action inside its job.
//
// All list queries are ordered by id so results are deterministic.
package docstore
