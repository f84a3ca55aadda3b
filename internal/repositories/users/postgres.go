package users

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

const userColumns = `id, ms_id, email, phone_number, name, info, source, is_email_confirmed, is_suppressed`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u     models.User
		msID  sql.NullInt64
		email sql.NullString
		phone sql.NullString
		name  sql.NullString
		info  sql.NullString
		src   sql.NullString
	)
	err := row.Scan(&u.ID, &msID, &email, &phone, &name, &info, &src, &u.IsEmailConfirmed, &u.IsSuppressed)
	if err != nil {
		return nil, err
	}
	if msID.Valid {
		u.MsID = &msID.Int64
	}
	if email.Valid {
		u.Email = &email.String
	}
	if phone.Valid {
		u.PhoneNumber = &phone.String
	}
	if name.Valid {
		u.Name = &name.String
	}
	if info.Valid {
		u.Info = &info.String
	}
	if src.Valid {
		u.Source = &src.String
	}
	return &u, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, u models.UserUpsert) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM upsert_user($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query,
		u.ID, u.PartitionID, u.MsID, u.Email, u.PhoneNumber, u.Name, u.Info, u.Source,
		u.IsEmailConfirmed, u.IsSuppressed))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string, partitionID int) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM get_user_by_id($1, $2)
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, partitionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string, partitionID int) error {
	query := `SELECT delete_user($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, id, partitionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
