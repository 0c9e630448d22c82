// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Stores report outcomes with the sentinel errors in errors.go. In
// particular, a lost optimistic-concurrency race is always reported as
// ErrConflict, so callers never depend on a driver's error types.
package store
