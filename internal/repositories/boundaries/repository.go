package boundaries

import "context"

// Repository reads federation partition boundaries from the federation
// root scope (a connection distinct from the per-partition ones).
type Repository interface {
	// GetBoundaries returns the ordered ascending list of partition
	// lower-bounds, one per federation member.
	GetBoundaries(ctx context.Context) ([]int, error)
}
