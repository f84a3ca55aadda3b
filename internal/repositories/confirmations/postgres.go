package confirmations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/dbx"
	"github.com/offerhub/userfed/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, c models.ConfirmationCode, partitionID int) (int64, error) {
	query := `SELECT upsert_confirmation_code($1, $2, $3, $4, $5, $6, $7)`

	var code int64
	err := r.db.QueryRowContext(ctx, query,
		c.UserIDHash, partitionID, c.Entity, int16(c.EntityType), c.UserID, c.MaxRetryCount, c.ExpirationUTC).
		Scan(&code)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return code, nil
}

func (r *PostgresRepository) GetEntity(ctx context.Context, userIDHash string, partitionID int, t models.ConfirmEntityType) (*models.ConfirmEntity, error) {
	query := `SELECT user_id, created_at, entity, entity_type
		 FROM get_confirmation_entity($1, $2, $3)
		 `

	var (
		e      models.ConfirmEntity
		etByte int16
	)
	err := r.db.QueryRowContext(ctx, query, userIDHash, partitionID, int16(t)).
		Scan(&e.UserID, &e.CreatedDate, &e.Entity, &etByte)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.Type = models.ConfirmEntityType(etByte)
	return &e, nil
}

func (r *PostgresRepository) Evaluate(ctx context.Context, userIDHash string, partitionID int, t models.ConfirmEntityType, code int64) (*models.ConfirmationEvaluation, error) {
	query := `SELECT entity, user_id, is_valid, is_confirmed, attempts_used, max_retry_count
		 FROM evaluate_confirmation($1, $2, $3, $4)
		 `

	var ev models.ConfirmationEvaluation
	err := r.db.QueryRowContext(ctx, query, userIDHash, partitionID, int16(t), code).
		Scan(&ev.Entity, &ev.UserID, &ev.IsValid, &ev.IsConfirmed, &ev.AttemptsUsed, &ev.MaxRetryCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &ev, nil
}

func (r *PostgresRepository) LogResend(ctx context.Context, userID string, partitionID int, t models.ConfirmEntityType) error {
	query := `SELECT log_confirmation_resend($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, userID, partitionID, int16(t)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ResendCount(ctx context.Context, userID string, partitionID int, t models.ConfirmEntityType, since time.Time) (int, error) {
	query := `SELECT confirmation_resend_count($1, $2, $3, $4)`

	var n int
	if err := r.db.QueryRowContext(ctx, query, userID, partitionID, int16(t), since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
