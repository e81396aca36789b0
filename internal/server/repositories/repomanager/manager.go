// Package repomanager vends repositories bound to either a *sql.DB or a
// *sql.Tx and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Messages(db dbx.DBTX) messages.Repository
}
