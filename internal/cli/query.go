package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/errs"
)

func newQueryCmd() *cobra.Command {
	var (
		format string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run a SQL statement and print its rows",
		Long: `Run a SQL statement exactly as given and print every resulting row.

The statement is not checked: anything the database user may run, including
writes, is executed and committed. Use a read-only role to prevent that.`,
		Example: `  pgmeta query "SELECT id, name FROM users LIMIT 5"
  pgmeta query --file report.sql --format table
  echo "SELECT now()" | pgmeta query --file -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readStatement(cmd, args, file)
			if err != nil {
				return err
			}

			a := appFrom(cmd)
			svc := a.service()
			if err := svc.Open(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = svc.Close(context.WithoutCancel(cmd.Context())) }()

			res, err := svc.Query(cmd.Context(), sql)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, res)
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the statement from a file (- for stdin)")
	return cmd
}

func readStatement(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", errs.New(errs.ErrKindInvalidInput, "pass either a statement or --file, not both")
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to read stdin", err)
		}
		return string(b), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to read "+file, err)
		}
		return string(b), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errs.New(errs.ErrKindInvalidInput, "no statement given: pass one or use --file")
	}
}
