package users

import (
	"context"

	"github.com/offerhub/userfed/internal/models"
)

// Repository is the typed client for the user stored procedures. All
// operations are partition-routed by the caller; partitionID is passed
// through to the backing store.
type Repository interface {
	// Upsert creates or partially updates a user row; nil fields in the
	// payload leave existing column values unchanged.
	Upsert(ctx context.Context, u models.UserUpsert) (*models.User, error)
	GetByID(ctx context.Context, id string, partitionID int) (*models.User, error)
	Delete(ctx context.Context, id string, partitionID int) error
}
