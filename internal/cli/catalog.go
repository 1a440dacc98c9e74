package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/summary"
)

const (
	formatYAML  = "yaml"
	formatTable = "table"
)

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatYAML, "output format (yaml|table)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{formatYAML, formatTable}, cobra.ShellCompDirectiveNoFileComp
	})
}

// render writes v in format.
func render(w io.Writer, format string, v any) error {
	switch format {
	case formatTable:
		return summary.Table(w, v)
	case formatYAML, "":
		out, err := summary.YAML(v)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q (want yaml or table)", format)
	}
}

func newSchemaCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema <schema>",
		Short: "List the tables of a schema",
		Long: `List the ordinary tables of a schema with their comments, ordered by name.
An unknown schema prints an empty list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ds, err := a.service().Tables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, ds)
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newTableCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "table <schema> <table>",
		Short: "Describe the columns of a table",
		Long: `Describe the columns of a table in declared order. An unknown table prints
a description with no columns.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			td, err := a.service().Table(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, td)
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}
