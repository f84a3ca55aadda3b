package confirmations

import (
	"context"
	"time"

	"github.com/offerhub/userfed/internal/models"
)

// Repository is the typed client for the confirmation-code stored
// procedures. The backing store owns code generation and the atomic
// compare-and-confirm transition; attempt accounting is surfaced through
// the evaluation result so the service layer can apply the retry policy.
type Repository interface {
	// Upsert issues a new code for (UserIDHash, EntityType), replacing any
	// prior pending code for the key, and returns the generated code.
	Upsert(ctx context.Context, c models.ConfirmationCode, partitionID int) (int64, error)

	// GetEntity returns the read-only projection of a pending code, or
	// common.ErrNotFound.
	GetEntity(ctx context.Context, userIDHash string, partitionID int, t models.ConfirmEntityType) (*models.ConfirmEntity, error)

	// Evaluate submits a candidate code. common.ErrNotFound means no row
	// exists for the key.
	Evaluate(ctx context.Context, userIDHash string, partitionID int, t models.ConfirmEntityType, code int64) (*models.ConfirmationEvaluation, error)

	LogResend(ctx context.Context, userID string, partitionID int, t models.ConfirmEntityType) error
	ResendCount(ctx context.Context, userID string, partitionID int, t models.ConfirmEntityType, since time.Time) (int, error)
}
