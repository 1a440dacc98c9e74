package database

// ColumnDescriptor is one column's catalog metadata, as read from
// information_schema.columns. The db tags drive named-field scanning.
type ColumnDescriptor struct {
	ColumnName             string  `db:"column_name" yaml:"column_name" json:"column_name"`
	DataType               string  `db:"data_type" yaml:"data_type" json:"data_type"`
	IsNullable             bool    `db:"is_nullable" yaml:"is_nullable" json:"is_nullable"`
	ColumnDefault          *string `db:"column_default" yaml:"column_default" json:"column_default"`
	CharacterMaximumLength *int    `db:"character_maximum_length" yaml:"character_maximum_length" json:"character_maximum_length"`
	NumericPrecision       *int    `db:"numeric_precision" yaml:"numeric_precision" json:"numeric_precision"`
	NumericScale           *int    `db:"numeric_scale" yaml:"numeric_scale" json:"numeric_scale"`
}

// TableDescriptor describes a table and its columns in ordinal order.
// Columns is empty (never nil) when the table is absent or has no columns.
type TableDescriptor struct {
	SchemaName string             `yaml:"schema_name" json:"schema_name"`
	TableName  string             `yaml:"table_name" json:"table_name"`
	Columns    []ColumnDescriptor `yaml:"columns" json:"columns"`
}

// TableSummary is one ordinary table of a schema with its catalog comment.
type TableSummary struct {
	SchemaName       string  `db:"schema_name" yaml:"schema_name" json:"schema_name"`
	TableName        string  `db:"table_name" yaml:"table_name" json:"table_name"`
	TableDescription *string `db:"table_description" yaml:"table_description" json:"table_description"`
}

// DatabaseSummary lists the tables of a schema ordered by schema, then table.
// Tables is empty (never nil) for an absent or empty schema.
type DatabaseSummary struct {
	Tables []TableSummary `yaml:"tables" json:"tables"`
}

// QueryRow maps a result column name to its normalized value.
type QueryRow map[string]any

// QueryResult holds every row of one executed statement. Columns keeps the
// order the server reported them in, which a QueryRow map cannot.
type QueryResult struct {
	Columns []string
	Rows    []QueryRow
}
