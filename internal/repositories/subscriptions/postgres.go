package subscriptions

import (
	"context"
	"fmt"

	"github.com/offerhub/userfed/internal/dbx"
	"github.com/offerhub/userfed/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListActiveEmail(ctx context.Context, userID string, partitionID int) ([]models.EmailSubscription, error) {
	query := `SELECT user_id, kind, active, created_at
		 FROM get_email_subscriptions($1, $2)
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, partitionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var subs []models.EmailSubscription
	for rows.Next() {
		var s models.EmailSubscription
		var kind string
		if err := rows.Scan(&s.UserID, &kind, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Kind = models.EmailSubscriptionKind(kind)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return subs, nil
}

func (r *PostgresRepository) ListActiveMerchant(ctx context.Context, userID string, partitionID int) ([]models.MerchantSubscription, error) {
	query := `SELECT user_id, merchant_id, active, created_at
		 FROM get_merchant_subscriptions($1, $2)
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, partitionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var subs []models.MerchantSubscription
	for rows.Next() {
		var s models.MerchantSubscription
		if err := rows.Scan(&s.UserID, &s.MerchantID, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return subs, nil
}

func (r *PostgresRepository) HasAny(ctx context.Context, userID string, partitionID int) (bool, error) {
	query := `SELECT has_any_subscription($1, $2)`

	var has bool
	if err := r.db.QueryRowContext(ctx, query, userID, partitionID).Scan(&has); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return has, nil
}

func (r *PostgresRepository) CreateEmail(ctx context.Context, userID string, partitionID int, kind models.EmailSubscriptionKind) error {
	query := `SELECT create_email_subscription($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, userID, partitionID, string(kind)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateMerchant(ctx context.Context, userID string, partitionID int, merchantID int64) error {
	query := `SELECT create_merchant_subscription($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, userID, partitionID, merchantID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
