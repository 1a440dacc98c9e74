package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/pgmeta/internal/database"
)

// Execute runs sql exactly as given and returns every row, normalized. args
// bind $n placeholders and are usually empty.
//
// Nothing restricts sql to reads: a mutating statement is executed (and, as
// the session is in autocommit mode, committed) like any other. Either all
// rows are returned or none are.
func Execute(ctx context.Context, q database.Querier, sql string, args ...any) (database.QueryResult, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return database.QueryResult{}, mapError(err, "query failed")
	}
	defer rows.Close()

	var columns []string
	raw := make([]map[string]any, 0)
	for rows.Next() {
		if columns == nil {
			columns = fieldNames(rows.FieldDescriptions())
		}
		m, err := pgx.RowToMap(rows)
		if err != nil {
			return database.QueryResult{}, mapError(err, "failed to read row")
		}
		raw = append(raw, m)
	}
	if err := rows.Err(); err != nil {
		return database.QueryResult{}, mapError(err, "query failed")
	}

	return database.QueryResult{
		Columns: columns,
		Rows:    database.NormalizeRows(raw),
	}, nil
}

// fieldNames lists result column names in server order. A repeated name
// keeps only its first position, matching the single map key it maps to.
func fieldNames(fds []pgconn.FieldDescription) []string {
	seen := make(map[string]bool, len(fds))
	names := make([]string, 0, len(fds))
	for _, fd := range fds {
		if seen[fd.Name] {
			continue
		}
		seen[fd.Name] = true
		names = append(names, fd.Name)
	}
	return names
}
