package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schema, table and query requests over HTTP",
		Long: `Open the session connection and serve requests until interrupted.

  GET  /schemas/{schema}
  GET  /schemas/{schema}/tables/{table}
  POST /query
  GET  /prompts/schema/{schema}
  GET  /prompts/table/{schema}/{table}
  GET  /prompts/query/{schema}/{table}
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			svc := a.service()
			if err := svc.Open(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = svc.Close(context.WithoutCancel(cmd.Context())) }()

			return server.New(a.cfg.HTTP(), svc, a.log).Serve(cmd.Context())
		},
	}
	cmd.Flags().String("server-addr", "", "listen address (default :8080)")
	return cmd
}
