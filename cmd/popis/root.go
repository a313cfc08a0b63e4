package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/config"
)

// app carries the loaded configuration to subcommands.
type app struct {
	cfg      *config.Config
	closeLog func()

	// Flag values; applied over the environment when set.
	dbPath    string
	addr      string
	logPath   string
	backend   string
	redisURL  string
	photoMode string
	scope     string
	quota     int64
	verbose   bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "popis",
		Short: "Photographed asset inventory",
		Long: `Popis keeps an inventory of physical assets, one photographed item at a
time, grouped into a fixed set of categories. Inventories taken on
different devices are combined by importing their backups.

Configuration is read from POPIS_* environment variables and an optional
.env file; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	f := root.PersistentFlags()
	f.StringVarP(&a.dbPath, "db", "d", "", "SQLite database path (env POPIS_DB)")
	f.StringVarP(&a.logPath, "log", "l", "", "log file path (env POPIS_LOG)")
	f.StringVar(&a.backend, "backend", "", "snapshot store: sqlite or redis (env POPIS_BACKEND)")
	f.StringVar(&a.redisURL, "redis-url", "", "redis URL (env POPIS_REDIS_URL)")
	f.StringVar(&a.photoMode, "photos", "", "photo storage: inline or blob (env POPIS_PHOTO_MODE)")
	f.StringVarP(&a.scope, "scope", "s", "", "inventory scope (env POPIS_SCOPE)")
	f.Int64Var(&a.quota, "quota", 0, "per-scope snapshot quota in bytes, 0 for none (env POPIS_QUOTA_BYTES)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log debug messages")

	root.AddCommand(
		newServeCmd(a),
		newIngestCmd(a),
		newMergeCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newArchiveCmd(a),
		newScopesCmd(a),
		newTokenCmd(a),
	)
	return root
}

// load reads the configuration, applies flags and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("addr") {
		cfg.Addr = a.addr
	}
	if flags.Changed("log") {
		cfg.LogPath = a.logPath
	}
	if flags.Changed("backend") {
		cfg.Backend = a.backend
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL = a.redisURL
	}
	if flags.Changed("photos") {
		cfg.PhotoMode = a.photoMode
	}
	if flags.Changed("scope") {
		cfg.Scope = a.scope
	}
	if flags.Changed("quota") {
		cfg.QuotaBytes = a.quota
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	// Commands that print documents keep stdout clean.
	quiet := cmd.Annotations["stdout"] == "data"
	closeLog, err := setupLogger(cfg.LogPath, level, quiet)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}
