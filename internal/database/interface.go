package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of a pgx connection the catalog reader and query
// executor need. *pgx.Conn satisfies it, and so does a pgxmock connection.
//
// Rows returned by Query expose their fields by name (FieldDescriptions),
// which every mapping step relies on.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
