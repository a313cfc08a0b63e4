package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/archive"
	"github.com/erazemk/popis/internal/backup"
	"github.com/erazemk/popis/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Merge a backup into the stored inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			imported, err := readBackup(args[0], b.svc.Catalog())
			if err != nil {
				return err
			}
			stats, err := b.svc.Import(ctx, a.cfg.Scope, imported)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported into %q: %d added, %d replaced, %d kept\n",
				a.cfg.Scope, stats.Added, stats.Replaced, stats.Kept)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:         "export",
		Short:       "Write the stored inventory as a backup",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"stdout": "data"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			snap, err := b.svc.Export(ctx, a.cfg.Scope)
			if err != nil {
				return err
			}

			if output == "" {
				return backup.Encode(cmd.OutOrStdout(), snap, b.svc.Catalog())
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := backup.Encode(f, snap, b.svc.Catalog()); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive [out.zip]",
		Short: "Write the stored inventory as a ZIP of descriptions and photos",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := archive.FileName(time.Now())
			if len(args) == 1 {
				path = args[0]
			}

			b, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.close()

			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := b.svc.Archive(ctx, a.cfg.Scope, f); err != nil {
				f.Close()
				os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))
			return nil
		},
	}
}

func newScopesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the scopes stored in the SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.close()
			if b.db == nil {
				return fmt.Errorf("scopes are only listed for the sqlite backend")
			}

			scopes, err := store.ListScopes(ctx, b.db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range scopes {
				fmt.Fprintf(out, "%-20s %6d items %10s\n", s.Scope, s.Items, humanize.Bytes(uint64(s.Size)))
			}
			return nil
		},
	}
}
