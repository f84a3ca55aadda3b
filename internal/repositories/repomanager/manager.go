// Package repomanager vends repository implementations bound to a database
// handle, so services can run any repository against either a plain
// connection or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/offerhub/userfed/internal/dbx"
	"github.com/offerhub/userfed/internal/repositories/boundaries"
	"github.com/offerhub/userfed/internal/repositories/confirmations"
	"github.com/offerhub/userfed/internal/repositories/identities"
	"github.com/offerhub/userfed/internal/repositories/subscriptions"
	"github.com/offerhub/userfed/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Identities(db dbx.DBTX) identities.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	Confirmations(db dbx.DBTX) confirmations.Repository
	Boundaries(db dbx.DBTX) boundaries.Repository
}
