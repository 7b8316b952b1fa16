package repositories

import "context"

// MemoryStore abstracts the external vector memory service. Records are owned
// by the service; the core only issues write requests and consumes search
// results. Fragment order is whatever the service returned, no local
// re-ranking.
type MemoryStore interface {
	// Search returns text fragments relevant to the query for one user.
	Search(ctx context.Context, query string, userID string) ([]string, error)
	// Add appends one conversation exchange to the user's memory.
	Add(ctx context.Context, text string, userID string) error
	// GetAll returns every stored fragment for one user.
	GetAll(ctx context.Context, userID string) ([]string, error)
}
