// Package mocks provides centralized mock implementations for testing.
//
// Stubs are configured through exported fields: either canned results
// (MockJWTService.Token, MockPasswordVerifier.ShouldSucceed) or a function
// per method that overrides the default behavior.
//
//	users := mocks.NewMockUserStore()
//	users.CreateFn = func(ctx context.Context, user *domain.User) error {
//	    return store.ErrEmailExists
//	}
//
// InMemoryTaskStore is a full fake rather than a stub: it implements
// store.TaskStore with real transaction and optimistic-concurrency
// semantics so ordering logic can be tested without PostgreSQL.
package mocks
