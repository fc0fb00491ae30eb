package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hackline/labtui/internal/catalog"
	"github.com/hackline/labtui/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "labtui",
	Short: "Terminal client for the machine catalog",
	Long: `labtui is an interactive terminal client for a remote machine catalog:
browse and filter the machine list, spawn a machine, and submit flags,
all without leaving the terminal.

Run it with no arguments to open the interactive UI. The API token is
read from the LABTUI_TOKEN environment variable or the config file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare invocation opens the interactive UI.
		return runTUI(cmd, args)
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newCatalogClient builds the catalog client from config, failing when no
// credential is available. A missing token is the one fatal condition: no
// catalog operation can work without it.
func newCatalogClient() (*catalog.Client, error) {
	token := cfg.Token()
	if token == "" {
		return nil, fmt.Errorf(
			"no API token configured: set LABTUI_TOKEN or add one to %s (run 'labtui setup')",
			cfg.ConfigFilePath())
	}

	qps := cfg.API.RateLimitQPS
	if qps <= 0 {
		qps = 5
	}

	return catalog.New(token,
		catalog.WithBaseURL(cfg.API.URL),
		catalog.WithLogger(logger),
		catalog.WithPageSize(cfg.API.PageSize),
		catalog.WithRateLimiter(rate.NewLimiter(rate.Limit(qps), qps)),
	), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.labtui/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "labtui home directory (default ~/.labtui)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
