package memory

import "context"

// Store is the long-term memory contract. Scope is the role key: a
// search scoped to role A must never surface content appended under
// role B for the same user. Both operations are best-effort from the
// orchestrator's point of view; errors are logged by the caller, never
// surfaced to the end user.
type Store interface {
	Search(ctx context.Context, userId, scope, query string, limit int) ([]string, error)
	Append(ctx context.Context, userId, scope string, entries []string) error
}
