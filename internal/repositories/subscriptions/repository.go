package subscriptions

import (
	"context"

	"github.com/offerhub/userfed/internal/models"
)

// Repository reads and writes a user's mailing and merchant subscriptions.
// The identity merge path uses HasAny to gate subscription adoption and the
// List/Create pairs to copy a merged-away user's subscriptions.
type Repository interface {
	ListActiveEmail(ctx context.Context, userID string, partitionID int) ([]models.EmailSubscription, error)
	ListActiveMerchant(ctx context.Context, userID string, partitionID int) ([]models.MerchantSubscription, error)
	HasAny(ctx context.Context, userID string, partitionID int) (bool, error)
	CreateEmail(ctx context.Context, userID string, partitionID int, kind models.EmailSubscriptionKind) error
	CreateMerchant(ctx context.Context, userID string, partitionID int, merchantID int64) error
}
