package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
	"github.com/ftpr-metrics/devlake-bot/internal/slackbot"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Slack bot (Socket Mode)",
	Long: `Connects to Slack over Socket Mode and serves the slash commands
and modals for creating DevLake projects and adding repositories.

Requires SLACK_BOT_TOKEN (xoxb-) and SLACK_APP_TOKEN (xapp-) in the
environment or the [slack] section of the config file.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	url, err := devlake.Probe(cfg.DevLakeURL)
	if err != nil {
		return err
	}
	cfg.DevLakeURL = url
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = url
	}

	client := devlake.NewClient(cfg, logger)
	prov := devlake.NewProvisioner(client, cfg, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("devlake", url).Msg("starting Slack bot")
	return slackbot.New(cfg, prov, logger).Run(ctx)
}
