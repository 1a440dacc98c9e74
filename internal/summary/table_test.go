package summary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/database"
)

func TestTable_QueryResult(t *testing.T) {
	res := database.QueryResult{
		Columns: []string{"id", "name"},
		Rows: []database.QueryRow{
			{"id": 1, "name": "alice"},
			{"id": 2, "name": nil},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, res))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ID")), bytes.Index(buf.Bytes(), []byte("NAME")))
}

func TestTable_Empty(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"no rows", database.QueryResult{Columns: []string{"id"}}, "(0 rows)\n"},
		{"no tables", database.DatabaseSummary{}, "(0 tables)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Table(&buf, tt.in))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTable_TableDescriptor(t *testing.T) {
	td := database.TableDescriptor{
		SchemaName: "public",
		TableName:  "users",
		Columns: []database.ColumnDescriptor{
			{ColumnName: "email", DataType: "character varying", CharacterMaximumLength: intPtr(255)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, td))
	assert.Contains(t, buf.String(), "Table: public.users")
	assert.Contains(t, buf.String(), "character varying")
	assert.Contains(t, buf.String(), "255")
}

func TestTable_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Table(&buf, "text"))
}
