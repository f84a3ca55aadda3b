package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, userID *string, externalID string, partitionID int, t models.ExternalIDType) (*models.ExternalIdentity, error) {
	query := `SELECT external_id, id_type, user_id, partition_id
		 FROM create_external_identity_if_absent($1, $2, $3, $4)
		 `

	var (
		ident  models.ExternalIdentity
		idType int16
	)
	err := r.db.QueryRowContext(ctx, query, userID, externalID, partitionID, int16(t)).
		Scan(&ident.ExternalID, &idType, &ident.UserID, &ident.PartitionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ident.Type = models.ExternalIDType(idType)
	return &ident, nil
}

func (r *PostgresRepository) GetUserID(ctx context.Context, externalID string, partitionID int, t models.ExternalIDType) (string, error) {
	query := `SELECT get_user_id_by_external_id($1, $2, $3)`

	var userID sql.NullString
	err := r.db.QueryRowContext(ctx, query, externalID, partitionID, int16(t)).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	if !userID.Valid {
		return "", common.ErrNotFound
	}
	return userID.String, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, externalID string, partitionID int, t models.ExternalIDType) error {
	query := `SELECT delete_external_identity($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, externalID, partitionID, int16(t)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
