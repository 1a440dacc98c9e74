// Package cli provides the pgmeta command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/config"
	"github.com/koustreak/pgmeta/internal/database/postgres"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/filestore/minio"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/service"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

// deps are the outside-world constructors a command may need. Tests replace
// them with in-memory fakes.
type deps struct {
	dialer    func(*config.Config, *logger.Logger) service.Dialer
	openStore func(context.Context, *filestore.Config) (filestore.Store, error)
}

func defaultDeps() deps {
	return deps{
		dialer: func(cfg *config.Config, log *logger.Logger) service.Dialer {
			return service.PostgresDialer(postgres.NewProvider(cfg.Database(), log))
		},
		openStore: func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			return minio.New(ctx, cfg)
		},
	}
}

// app is what PersistentPreRunE hands to every command through its context.
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	deps deps
}

func (a *app) service() *service.Service {
	return service.New(a.deps.dialer(a.cfg, a.log), a.log, service.Options{
		QueryTimeout: a.cfg.DB.QueryTimeout,
	})
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(d deps) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "pgmeta",
		Short: "Describe and query a PostgreSQL database for agents",
		Long: `pgmeta renders a PostgreSQL database's structure and contents as YAML:
the tables of a schema with their comments, the columns of a table, and the
rows of an arbitrary query.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsConfig(cmd) {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logCfg := cfg.Logger()
			logCfg.Output = cmd.ErrOrStderr()
			log := logger.New(logCfg)
			if cfg.File != "" {
				log.Debugf("using config file %s", cfg.File)
			}

			ctx := context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, log: log, deps: d})
			cmd.SetContext(log.WithContext(ctx))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./pgmeta.yaml)")
	pf.String("db-host", "", "database host")
	pf.Int("db-port", 0, "database port")
	pf.String("db-user", "", "database user")
	pf.String("db-name", "", "database name")
	pf.String("db-sslmode", "", "sslmode (disable|require|verify-full|...)")
	pf.String("db-app-name", "", "application_name reported to the server")
	pf.Duration("db-connect-timeout", 0, "timeout for opening a connection")
	pf.Duration("db-query-timeout", 0, "timeout for ad hoc queries (0 = none)")
	pf.Bool("db-keyring", false, "read the password from the OS keyring")
	pf.String("log-level", "", "log level (debug|info|warn|error|disabled)")
	pf.String("log-format", "", "log format (console|json)")

	rootCmd.AddCommand(
		newSchemaCmd(),
		newTableCmd(),
		newQueryCmd(),
		newRowsCmd(),
		newServeCmd(),
		newSnapshotCmd(),
		newPromptCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func needsConfig(cmd *cobra.Command) bool {
	if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd {
		return false
	}
	if p := cmd.Parent(); p != nil && p.Name() == "completion" {
		return false
	}
	return cmd.Annotations[skipConfig] != "true"
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
