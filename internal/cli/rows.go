package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
)

func newRowsCmd() *cobra.Command {
	var (
		format  string
		columns []string
		where   []string
		orderBy string
		desc    bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "rows <schema> <table>",
		Short: "Read rows of a table through a parameterized SELECT",
		Long: `Read rows of one table. Identifiers are quoted and filter values are
bound as parameters, so nothing typed here is spliced into SQL.

A --where filter is "column operator value" where operator is one of
= != <> < > <= >= LIKE ILIKE. Repeated filters are combined with AND.`,
		Example: `  pgmeta rows public users --limit 5
  pgmeta rows public users --columns id,name --where "name LIKE a%" --order-by id --desc`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := database.Select(args[0], args[1]).Limit(limit)
			if len(columns) > 0 {
				b.Columns(columns...)
			}
			for _, w := range where {
				col, op, val, err := parseWhere(w)
				if err != nil {
					return err
				}
				b.Where(col, op, val)
			}
			if orderBy != "" {
				dir := database.Asc
				if desc {
					dir = database.Desc
				}
				b.OrderBy(orderBy, dir)
			}

			a := appFrom(cmd)
			svc := a.service()
			if err := svc.Open(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = svc.Close(context.WithoutCancel(cmd.Context())) }()

			res, err := svc.Preview(cmd.Context(), b)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, res)
		},
	}

	addFormatFlag(cmd, &format)
	f := cmd.Flags()
	f.StringSliceVar(&columns, "columns", nil, "columns to read (default all)")
	f.StringArrayVar(&where, "where", nil, `filter as "column operator value" (repeatable)`)
	f.StringVar(&orderBy, "order-by", "", "column to sort by")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.IntVar(&limit, "limit", 20, "maximum rows")
	return cmd
}

// parseWhere splits "column operator value". The value may contain spaces.
func parseWhere(s string) (col, op, val string, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", errs.New(errs.ErrKindInvalidInput, `--where wants "column operator value", got `+s)
	}
	return parts[0], parts[1], parts[2], nil
}
