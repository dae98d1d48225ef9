// Package repomanager vends repositories bound to a database handle, runs
// schema migrations and scopes units of work to transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/userservice/internal/dbx"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/roles"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/userservice/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Roles(db dbx.DBTX) roles.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	// InTx runs fn so that every repository obtained from its handle
	// commits or rolls back together.
	InTx(ctx context.Context, db *sql.DB, fn dbx.TxFunc) error
}
