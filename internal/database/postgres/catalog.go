package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/database"
)

// Catalog introspection queries. Schema and table names are always bound as
// parameters.
const (
	queryListTables = `
		SELECT
			n.nspname::text AS schema_name,
			c.relname::text AS table_name,
			d.description   AS table_description
		FROM pg_catalog.pg_class c
		LEFT JOIN pg_catalog.pg_namespace n
			ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_description d
			ON d.objoid = c.oid
			AND d.classoid = 'pg_catalog.pg_class'::regclass
			AND d.objsubid = 0
		WHERE c.relkind = 'r'
		  AND n.nspname = $1
		ORDER BY n.nspname, c.relname`

	queryDescribeTable = `
		SELECT
			column_name::text              AS column_name,
			data_type::text                AS data_type,
			is_nullable = 'YES'            AS is_nullable,
			column_default::text           AS column_default,
			character_maximum_length::int  AS character_maximum_length,
			numeric_precision::int         AS numeric_precision,
			numeric_scale::int             AS numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name   = $2
		ORDER BY ordinal_position`
)

// ListTables returns the ordinary tables of schema with their comments.
// An absent schema yields an empty Tables slice, not an error.
func ListTables(ctx context.Context, q database.Querier, schema string) (database.DatabaseSummary, error) {
	rows, err := q.Query(ctx, queryListTables, schema)
	if err != nil {
		return database.DatabaseSummary{}, mapError(err, "failed to list tables")
	}

	tables, err := pgx.CollectRows(rows, pgx.RowToStructByName[database.TableSummary])
	if err != nil {
		return database.DatabaseSummary{}, mapError(err, "failed to read tables")
	}
	if tables == nil {
		tables = []database.TableSummary{}
	}
	return database.DatabaseSummary{Tables: tables}, nil
}

// DescribeTable returns the columns of schema.table in ordinal order.
// An absent table yields a descriptor with no columns; this cannot be told
// apart from a table that has none.
func DescribeTable(ctx context.Context, q database.Querier, schema, table string) (database.TableDescriptor, error) {
	rows, err := q.Query(ctx, queryDescribeTable, schema, table)
	if err != nil {
		return database.TableDescriptor{}, mapError(err, "failed to describe table")
	}

	cols, err := pgx.CollectRows(rows, pgx.RowToStructByName[database.ColumnDescriptor])
	if err != nil {
		return database.TableDescriptor{}, mapError(err, "failed to read columns")
	}
	if cols == nil {
		cols = []database.ColumnDescriptor{}
	}
	return database.TableDescriptor{
		SchemaName: schema,
		TableName:  table,
		Columns:    cols,
	}, nil
}
