// Package prompt holds the canned requests an agent can be primed with.
package prompt

import "fmt"

// SchemaDescription asks for a description of schema.
func SchemaDescription(schema string) string {
	return fmt.Sprintf("Please provide a description of the schema `%s`", schema)
}

// TableDescription asks for a description of schema.table.
func TableDescription(schema, table string) string {
	return fmt.Sprintf("Please provide a description of the table `%s` in the schema `%s`", table, schema)
}

// QueryTable asks for the contents of schema.table.
func QueryTable(schema, table string) string {
	return fmt.Sprintf("Please bring me the data from the table `%s` in the schema `%s`", table, schema)
}
