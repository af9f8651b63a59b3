// Package cmd contains the cobra command tree for devlake-bot.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/config"
	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
)

var (
	cfgPath string // --config flag (global)
	cfgURL  string // --url flag (global)
	verbose bool   // --verbose flag (global)

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "devlake-bot",
	Short: "Onboard repositories to Apache DevLake from Slack or the CLI",
	Long: `devlake-bot provisions Apache DevLake projects.

Creates connections, scope configs, scopes, projects, and blueprints
against a running DevLake instance. Run it as a Slack bot (Socket Mode)
or drive the same workflows from the command line.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "Path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&cfgURL, "url", "", "DevLake API base URL (auto-discovered if omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	// .env is optional; real env vars and the TOML file both win over it.
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	var err error
	cfg, err = config.Load(expandHome(cfgPath))
	if err != nil {
		return err
	}
	if cfgURL != "" {
		cfg.DevLakeURL = cfgURL
	}
	return nil
}

// expandHome resolves a leading ~ so the default config path works on
// any account.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// newProvisioner locates the DevLake instance and builds the client stack
// shared by all commands.
func newProvisioner() (*devlake.Provisioner, error) {
	url, err := devlake.Probe(cfg.DevLakeURL)
	if err != nil {
		return nil, err
	}
	cfg.DevLakeURL = url
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = url
	}
	fmt.Printf("🔍 Using DevLake at %s\n", url)

	client := devlake.NewClient(cfg, logger)
	return devlake.NewProvisioner(client, cfg, logger), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
