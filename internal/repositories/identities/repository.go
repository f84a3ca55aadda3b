package identities

import (
	"context"

	"github.com/offerhub/userfed/internal/models"
)

// Repository is the typed client for external identity stored procedures.
type Repository interface {
	// CreateIfAbsent is the atomic create-or-fetch primitive: if no mapping
	// exists for (externalID, t) one is created pointing at userID (or a
	// newly minted user id when userID is nil); either way the surviving
	// mapping is returned. Concurrent callers converge on one row.
	CreateIfAbsent(ctx context.Context, userID *string, externalID string, partitionID int, t models.ExternalIDType) (*models.ExternalIdentity, error)

	// GetUserID resolves an external id to its user id, or common.ErrNotFound.
	GetUserID(ctx context.Context, externalID string, partitionID int, t models.ExternalIDType) (string, error)

	Delete(ctx context.Context, externalID string, partitionID int, t models.ExternalIDType) error
}
