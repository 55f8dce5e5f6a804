// Package repomanager vends the server repositories for the configured
// storage backend and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/yieldvault/internal/dbx"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/records"
)

// RepositoryManager binds repositories to a DBTX. Backends that do not use
// SQL ignore the db argument.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Nonces(db dbx.DBTX) nonces.Repository
}
