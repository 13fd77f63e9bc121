// sectorboard maintains a curated sector → industry → sub-industry → stock
// hierarchy and archives equity research reports.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sector_dashboard/internal/config"
	"sector_dashboard/internal/hierarchy"
	"sector_dashboard/internal/logger"
	"sector_dashboard/internal/market"
	"sector_dashboard/internal/market/alpaca"
	"sector_dashboard/internal/storage"
)

// VersionFile holds the release tag next to the binary's working directory.
const VersionFile = "version.latest"

// Build-time variables (set via -ldflags).
var (
	version = ""
	commit  = "unknown"
)

// Shared state, set up by the root command before any subcommand runs.
var (
	cfg     *config.Config
	store   *hierarchy.Store
	rotator *logger.Rotator
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sectorboard",
	Short:         "Sector dashboard and equity research archive",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `sectorboard keeps a hand-curated map of market sectors, industries,
sub-industries and stocks in one JSON file, renders it as a dashboard,
and stores research reports as JSON snapshots and PDFs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataFile, _ := cmd.Flags().GetString("data"); dataFile != "" {
			cfg.Storage.DataFile = dataFile
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}

		rotator = logger.Setup(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		logger.SetLevel(cfg.Logging.Level)
		logger.Debugf("config loaded, data file %s", cfg.Storage.DataFile)

		if !needsStore(cmd) {
			return nil
		}
		store, err = hierarchy.Open(storage.NewDocument(cfg.Storage.DataFile))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", cfg.Storage.DataFile, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rotator != nil {
			rotator.Close()
		}
	},
}

// skipStore marks a command tree that never touches the hierarchy, so a
// broken data file cannot block it.
const skipStore = "skip-store"

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipStore]; ok {
			return false
		}
	}
	return true
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("data", "", "hierarchy document (overrides storage.data_file)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sectorboard %s\n", readVersion())
		fmt.Printf("  commit:  %s\n", commit)
	},
}

func readVersion() string {
	if version != "" {
		return version
	}
	// read version from VersionFile file
	v, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(v))
}

// newQuoter returns the Alpaca provider, or nil when quotes are disabled.
func newQuoter() market.Quoter {
	if !cfg.Market.Enabled {
		return nil
	}
	log.Printf("INFO: quotes enabled (alpaca, %d days of history)", cfg.Market.HistoryDays)
	return alpaca.NewProvider(cfg.Market.HistoryDays)
}
