package summary

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/koustreak/pgmeta/internal/database"
)

const null = "NULL"

// Table writes v to w as an aligned text table. It accepts the same values as
// YAML except free-form ones.
func Table(w io.Writer, v any) error {
	switch v := v.(type) {
	case database.QueryResult:
		return resultTable(w, v)
	case database.TableDescriptor:
		return columnsTable(w, v)
	case database.DatabaseSummary:
		return tablesTable(w, v)
	default:
		return fmt.Errorf("no table rendering for %T", v)
	}
}

func newWriter(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func resultTable(w io.Writer, res database.QueryResult) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	cols := res.Columns
	if len(cols) == 0 {
		cols = sortedKeys(res.Rows[0])
	}

	t := newWriter(w)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range res.Rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = formatValue(r[c])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func columnsTable(w io.Writer, td database.TableDescriptor) error {
	_, _ = fmt.Fprintf(w, "Table: %s.%s\n", td.SchemaName, td.TableName)

	t := newWriter(w)
	t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Default", "Length", "Precision", "Scale"})
	for _, c := range td.Columns {
		t.AppendRow(table.Row{
			c.ColumnName,
			c.DataType,
			c.IsNullable,
			optString(c.ColumnDefault),
			optInt(c.CharacterMaximumLength),
			optInt(c.NumericPrecision),
			optInt(c.NumericScale),
		})
	}
	t.Render()
	return nil
}

func tablesTable(w io.Writer, ds database.DatabaseSummary) error {
	if len(ds.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(0 tables)")
		return nil
	}

	t := newWriter(w)
	t.AppendHeader(table.Row{"Schema", "Table", "Description"})
	for _, s := range ds.Tables {
		t.AppendRow(table.Row{s.SchemaName, s.TableName, optString(s.TableDescription)})
	}
	t.Render()
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return null
	}
	return fmt.Sprintf("%v", scalar(v))
}

func optString(s *string) string {
	if s == nil {
		return null
	}
	return *s
}

func optInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func sortedKeys(row database.QueryRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
