package repository

import (
	"context"
	"database/sql"

	"github.com/kesara/purple/internal/database"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting one repository method serve both transactional and pooled
// callers.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pick returns tx when the caller supplied one, the pooled connection
// otherwise.
func pick(db *database.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}
