package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/backup"
	"github.com/erazemk/popis/internal/merge"
	"github.com/erazemk/popis/internal/model"
)

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <local.json> <imported.json>...",
		Short: "Merge backups offline and print the result",
		Long: `Merge combines backup files without touching any store. The backups are
merged pairwise in argument order; for an item present on both sides the
more recently edited copy wins. The merged backup is written to stdout.`,
		Args:        cobra.MinimumNArgs(2),
		Annotations: map[string]string{"stdout": "data"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := a.cfg.Catalog()

			snaps := make([]model.Snapshot, 0, len(args))
			for _, path := range args {
				snap, err := readBackup(path, catalog)
				if err != nil {
					return err
				}
				snaps = append(snaps, snap)
			}

			engine := merge.New(catalog)
			result := snaps[0]
			var total merge.Stats
			for i, imported := range snaps[1:] {
				merged, stats, err := engine.MergeWithStats(result, imported)
				if err != nil {
					return fmt.Errorf("merging %s: %w", args[i+1], err)
				}
				result = merged
				total.Add(stats)
			}

			slog.Info("merged", "files", len(args), "items", result.Len(),
				"added", total.Added, "replaced", total.Replaced, "kept", total.Kept)
			return backup.Encode(cmd.OutOrStdout(), result, catalog)
		},
	}
}

func readBackup(path string, catalog *model.Catalog) (model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := backup.Decode(f, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
