package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/prompt"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print a canned agent prompt",
	}

	leaf := func(use, short string, nargs int, text func(args []string) string) *cobra.Command {
		return &cobra.Command{
			Use:         use,
			Short:       short,
			Args:        cobra.ExactArgs(nargs),
			Annotations: map[string]string{skipConfig: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), text(args))
				return err
			},
		}
	}

	cmd.AddCommand(
		leaf("schema <schema>", "Ask for a description of a schema", 1, func(a []string) string {
			return prompt.SchemaDescription(a[0])
		}),
		leaf("table <schema> <table>", "Ask for a description of a table", 2, func(a []string) string {
			return prompt.TableDescription(a[0], a[1])
		}),
		leaf("query <schema> <table>", "Ask for the data of a table", 2, func(a []string) string {
			return prompt.QueryTable(a[0], a[1])
		}),
	)
	return cmd
}
