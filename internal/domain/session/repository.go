package session

import "context"

// Repository is the storage contract for session contexts. Get is an
// idempotent create: a session id always maps to some record once looked up.
// Concurrent updates to the same id must not corrupt the record; plain
// read-then-write races resolve as last-writer-wins, which is acceptable for
// best-effort conversational memory.
type Repository interface {
	Get(ctx context.Context, sessionID string) (Context, error)
	Update(ctx context.Context, sessionID string, partial Partial) error
	Clear(ctx context.Context, sessionID string) error
	Len(ctx context.Context) (int, error)
}
