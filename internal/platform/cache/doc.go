// Package cache provides a Redis-backed cache for pages of a user's task
// list. Pages live in one hash per user and list generation. Invalidation
// increments the generation instead of deleting pages, so a reader that
// loaded rows before a write can never publish them after it.
package cache
