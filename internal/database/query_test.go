package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/errs"
)

func TestSelectBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  *SelectBuilder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "star",
			builder: Select("public", "users"),
			wantSQL: `SELECT * FROM "public"."users"`,
		},
		{
			name:    "columns quoted",
			builder: Select("public", "users").Columns("id", "Name"),
			wantSQL: `SELECT "id", "Name" FROM "public"."users"`,
		},
		{
			name:    "embedded quote doubled",
			builder: Select("public", `we"ird`),
			wantSQL: `SELECT * FROM "public"."we""ird"`,
		},
		{
			name: "full",
			builder: Select("app", "orders").
				Columns("id", "total").
				Where("status", "=", "open").
				Where("total", "like", "1%").
				OrderBy("created_at", Desc).
				OrderBy("id", Asc).
				Limit(10),
			wantSQL:  `SELECT "id", "total" FROM "app"."orders" WHERE "status" = $1 AND "total" LIKE $2 ORDER BY "created_at" DESC, "id" ASC LIMIT $3`,
			wantArgs: []any{"open", "1%", 10},
		},
		{
			name:     "limit only",
			builder:  Select("public", "users").Limit(5),
			wantSQL:  `SELECT * FROM "public"."users" LIMIT $1`,
			wantArgs: []any{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *SelectBuilder
	}{
		{"operator injection", Select("public", "users").Where("id", "= 1 OR 1 =", 1)},
		{"empty schema", Select("", "users")},
		{"empty table", Select("public", " ")},
		{"negative limit", Select("public", "users").Limit(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}
