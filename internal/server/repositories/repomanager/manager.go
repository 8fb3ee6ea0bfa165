// Package repomanager wires repository constructors to a concrete storage
// backend and exposes a schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkovs/authcore/internal/dbx"
	"github.com/avolkovs/authcore/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
