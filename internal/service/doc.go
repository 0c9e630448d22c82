// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// TaskService is the single entry point the API layer uses for task
// operations. It resolves the caller's user ID into an ordering.Scope, hands
// position work to the ordering package (Ledger for append, delete and
// compaction, Coordinator for client reorders), and keeps the optional
// per-user list cache consistent with every successful mutation.
//
// The service layer depends on domain entities and repository interfaces (from store),
// but never on specific infrastructure implementations.
package service
