package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
)

var statusPipelineID int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check DevLake health and optionally a pipeline's progress",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusPipelineID, "pipeline", 0, "Pipeline ID to inspect")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	url, err := devlake.Probe(cfg.DevLakeURL)
	if err != nil {
		return err
	}
	cfg.DevLakeURL = url

	client := devlake.NewClient(cfg, logger)
	if err := client.Ping(); err != nil {
		return fmt.Errorf("DevLake at %s is not healthy: %w", url, err)
	}
	fmt.Printf("✅ DevLake at %s is healthy\n", url)

	if statusPipelineID > 0 {
		pipeline, err := client.GetPipeline(statusPipelineID)
		if err != nil {
			return err
		}
		fmt.Printf("   Pipeline %d: %s (%d/%d tasks)\n",
			pipeline.ID, pipeline.Status, pipeline.FinishedTasks, pipeline.TotalTasks)
	}
	return nil
}
