//go:build integration

// Package testdb provides utilities for tests that run against a real
// PostgreSQL database.
//
// Tests isolate themselves with WithTx, which runs the test body in a
// transaction that is always rolled back. Tests that need real commits, such
// as concurrency tests, use CleanupUser to remove what they wrote.
//
// The database URL is read from TASKLIST_TEST_DB_URL, falling back to
// DATABASE_URL. When neither is set, SkipIfNoDatabase skips the test.
package testdb
