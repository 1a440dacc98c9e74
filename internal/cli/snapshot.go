package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/koustreak/pgmeta/internal/snapshot"
	"github.com/koustreak/pgmeta/internal/summary"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive schema descriptions to object storage",
	}

	pf := cmd.PersistentFlags()
	pf.String("archive-endpoint", "", "object storage host:port")
	pf.String("archive-bucket", "", "bucket receiving snapshots")
	pf.String("archive-prefix", "", "key prefix for snapshots")
	pf.Bool("archive-use-ssl", false, "use TLS for object storage")

	cmd.AddCommand(
		newSnapshotTakeCmd(),
		newSnapshotListCmd(),
		newSnapshotCatCmd(),
		newSnapshotURLCmd(),
	)
	return cmd
}

func openArchive(cmd *cobra.Command) (*snapshot.Archive, error) {
	a := appFrom(cmd)
	fsCfg := a.cfg.Filestore()
	store, err := a.deps.openStore(cmd.Context(), fsCfg)
	if err != nil {
		return nil, err
	}
	return snapshot.New(store, a.service(), snapshot.Options{
		Bucket: fsCfg.Bucket,
		Prefix: a.cfg.Archive.Prefix,
	}, a.log), nil
}

func newSnapshotTakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <schema>",
		Short: "Upload the schema summary and every table description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = archive.Close() }()
			m, err := archive.Take(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := summary.YAML(m)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List archived objects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = archive.Close() }()
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}
			objs, err := archive.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(objs) == 0 {
				_, _ = fmt.Fprintln(w, "(0 objects)")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Key", "Size", "Modified"})
			for _, o := range objs {
				modified := ""
				if !o.LastModified.IsZero() {
					modified = o.LastModified.UTC().Format(time.RFC3339)
				}
				t.AppendRow(table.Row{o.Key, o.Size, modified})
			}
			t.Render()
			return nil
		},
	}
}

func newSnapshotCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <key>",
		Short: "Print an archived object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = archive.Close() }()
			return archive.Cat(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
}

func newSnapshotURLCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print a time-limited download link for an archived object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = archive.Close() }()
			u, err := archive.URL(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "link lifetime")
	return cmd
}
