// Package ordering keeps each user's task list densely ranked.
//
// Ledger maintains the invariant that a user's N tasks hold positions
// 0..N-1, each exactly once: it appends at the tail and compacts after
// deletions. Coordinator applies client-requested reorderings, validating
// them against the stored list and persisting them in one transaction.
//
// Neither component locks. Every write is version-checked by the store, and a
// lost race surfaces as a DataConflictError with the transaction rolled back.
// Callers pass an explicit Scope naming the user and the store to use.
package ordering
