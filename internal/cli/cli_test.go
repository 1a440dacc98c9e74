package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/config"
	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/database/dbtest"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/service"
)

// fakeDeps answers every dial with a session over q and refuses to open an
// object store.
func fakeDeps(q database.Querier) deps {
	return deps{
		dialer: func(*config.Config, *logger.Logger) service.Dialer {
			return func(context.Context) (service.Session, error) {
				return dbtest.NewSession(q), nil
			}
		},
		openStore: func(context.Context, *filestore.Config) (filestore.Store, error) {
			return nil, errs.New(errs.ErrKindConnection, "no object store in tests")
		},
	}
}

// newMock returns a pgxmock connection whose expectations must all be met by
// the end of the test. Without expectations, any statement fails.
func newMock(t *testing.T) pgxmock.PgxConnIface {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return mock
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, d deps, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("PGMETA_DB_NAME", "")
	t.Setenv("PGMETA_DB_USER", "")

	cmd := newRootCmd(d)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// dbArgs are the minimum flags for a valid configuration.
var dbArgs = []string{"--db-user", "app", "--db-name", "appdb", "--log-level", "disabled"}

func withDB(args ...string) []string {
	return append(append([]string{}, args...), dbArgs...)
}

func TestVersionCommand(t *testing.T) {
	res := run(t, fakeDeps(newMock(t)), "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "pgmeta v"+Version)
}

func TestHelpCommand(t *testing.T) {
	res := run(t, fakeDeps(newMock(t)), "", "--help")
	require.NoError(t, res.err)
	for _, sub := range []string{"schema", "table", "query", "rows", "serve", "snapshot", "prompt", "version"} {
		assert.Contains(t, res.stdout, sub)
	}
}

func TestPromptCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"prompt", "schema", "public"}, "Please provide a description of the schema `public`\n"},
		{[]string{"prompt", "table", "public", "users"}, "Please provide a description of the table `users` in the schema `public`\n"},
		{[]string{"prompt", "query", "public", "users"}, "Please bring me the data from the table `users` in the schema `public`\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			// No database flags: prompts never load configuration.
			res := run(t, fakeDeps(newMock(t)), "", tt.args...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func TestSchemaCommand(t *testing.T) {
	expectTables := func(m pgxmock.PgxConnIface) {
		desc := "Application users"
		m.ExpectQuery(`FROM pg_catalog\.pg_class`).
			WithArgs("public").
			WillReturnRows(pgxmock.NewRows([]string{"schema_name", "table_name", "table_description"}).
				AddRow("public", "users", &desc))
	}

	t.Run("yaml", func(t *testing.T) {
		mock := newMock(t)
		expectTables(mock)
		res := run(t, fakeDeps(mock), "", withDB("schema", "public")...)
		require.NoError(t, res.err)
		assert.Equal(t, "tables:\n  - schema_name: public\n    table_name: users\n    table_description: Application users\n", res.stdout)
	})

	t.Run("table", func(t *testing.T) {
		mock := newMock(t)
		expectTables(mock)
		res := run(t, fakeDeps(mock), "", withDB("schema", "public", "--format", "table")...)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Application users")
		assert.Contains(t, res.stdout, "DESCRIPTION")
	})

	t.Run("unknown format", func(t *testing.T) {
		mock := newMock(t)
		expectTables(mock)
		res := run(t, fakeDeps(mock), "", withDB("schema", "public", "--format", "xml")...)
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "unknown format")
	})
}

func TestTableCommand(t *testing.T) {
	precision, scale := 32, 0
	mock := newMock(t)
	mock.ExpectQuery(`FROM information_schema\.columns`).
		WithArgs("public", "users").
		WillReturnRows(pgxmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "column_default",
			"character_maximum_length", "numeric_precision", "numeric_scale",
		}).AddRow("id", "integer", false, nil, nil, &precision, &scale))

	res := run(t, fakeDeps(mock), "", withDB("table", "public", "users")...)
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "schema_name: public\ntable_name: users\ncolumns:\n"), res.stdout)
	assert.Contains(t, res.stdout, "column_name: id")
}

func TestQueryCommand(t *testing.T) {
	const stmt = "SELECT name, age FROM users"
	expectNames := func(m pgxmock.PgxConnIface) {
		m.ExpectQuery("^" + stmt + "$").
			WillReturnRows(pgxmock.NewRows([]string{"name", "age"}).AddRow("alice", int32(30)))
	}

	t.Run("argument", func(t *testing.T) {
		mock := newMock(t)
		expectNames(mock)
		res := run(t, fakeDeps(mock), "", withDB("query", stmt)...)
		require.NoError(t, res.err)
		assert.Equal(t, "- name: alice\n  age: 30\n", res.stdout)
	})

	t.Run("stdin", func(t *testing.T) {
		mock := newMock(t)
		expectNames(mock)
		res := run(t, fakeDeps(mock), stmt, withDB("query", "--file", "-")...)
		require.NoError(t, res.err)
		assert.Equal(t, "- name: alice\n  age: 30\n", res.stdout)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "q.sql")
		require.NoError(t, os.WriteFile(path, []byte(stmt), 0o600))

		mock := newMock(t)
		expectNames(mock)
		res := run(t, fakeDeps(mock), "", withDB("query", "-f", path)...)
		require.NoError(t, res.err)
		assert.Equal(t, "- name: alice\n  age: 30\n", res.stdout)
	})

	t.Run("argument and file", func(t *testing.T) {
		res := run(t, fakeDeps(newMock(t)), "", withDB("query", "SELECT 1", "--file", "-")...)
		require.Error(t, res.err)
		assert.True(t, errs.IsInvalidInput(res.err))
	})

	t.Run("no statement", func(t *testing.T) {
		res := run(t, fakeDeps(newMock(t)), "", withDB("query")...)
		require.Error(t, res.err)
		assert.True(t, errs.IsInvalidInput(res.err))
	})

	t.Run("empty file", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("^$").WillReturnRows(pgxmock.NewRows(nil))
		res := run(t, fakeDeps(mock), "", withDB("query", "--file", "-")...)
		require.NoError(t, res.err)
		assert.Equal(t, "[]\n", res.stdout)
	})
}

func TestRowsCommand(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "name" FROM "public"."users" WHERE "name" LIKE $1 ORDER BY "id" DESC LIMIT $2`)).
		WithArgs("a%", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int32(7), "alice"))

	res := run(t, fakeDeps(mock), "", withDB("rows", "public", "users",
		"--columns", "id,name", "--where", "name LIKE a%", "--order-by", "id", "--desc", "--limit", "5")...)
	require.NoError(t, res.err)
	assert.Equal(t, "- id: 7\n  name: alice\n", res.stdout)
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		in               string
		col, op, val     string
		wantInvalidInput bool
	}{
		{in: "name = alice", col: "name", op: "=", val: "alice"},
		{in: " title ILIKE %big deal% ", col: "title", op: "ILIKE", val: "%big deal%"},
		{in: "name =", wantInvalidInput: true},
		{in: "", wantInvalidInput: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			col, op, val, err := parseWhere(tt.in)
			if tt.wantInvalidInput {
				require.Error(t, err)
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.col, tt.op, tt.val}, []string{col, op, val})
		})
	}
}

func TestMissingDatabaseName(t *testing.T) {
	res := run(t, fakeDeps(newMock(t)), "", "schema", "public", "--db-user", "app")
	require.Error(t, res.err)
	assert.True(t, errs.IsInvalidInput(res.err))
	assert.Contains(t, res.err.Error(), "db.name")
}

func TestSnapshotStoreUnavailable(t *testing.T) {
	res := run(t, fakeDeps(newMock(t)), "", withDB("snapshot", "ls")...)
	require.Error(t, res.err)
	assert.True(t, errs.IsConnection(res.err))
}

func TestNeedsConfig(t *testing.T) {
	root := newRootCmd(fakeDeps(newMock(t)))

	tests := []struct {
		path []string
		want bool
	}{
		{[]string{"schema"}, true},
		{[]string{"snapshot", "take"}, true},
		{[]string{"version"}, false},
		{[]string{"prompt", "table"}, false},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.path, " "), func(t *testing.T) {
			cmd, _, err := root.Find(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, needsConfig(cmd))
		})
	}
}
