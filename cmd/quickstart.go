package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/prompt"
)

var (
	quickName     string
	quickRepo     string
	quickToken    string
	quickSchedule string
)

var quickstartCmd = &cobra.Command{
	Use:   "quickstart",
	Short: "One repo, one token, everything else defaulted",
	Long: `Provisions a single-repo GitHub project in one shot: a fresh
connection, scope config, scope, blueprint, and the first collection
run. Fails fast on the first error instead of collecting partial
results; use create-project for multi-repo or reuse scenarios.`,
	RunE: runQuickstart,
}

func init() {
	quickstartCmd.Flags().StringVar(&quickName, "name", "", "Project name (required)")
	quickstartCmd.Flags().StringVar(&quickRepo, "repo", "", "GitHub repo as owner/repo (required)")
	quickstartCmd.Flags().StringVar(&quickToken, "token", "", "GitHub PAT (prompted if omitted)")
	quickstartCmd.Flags().StringVar(&quickSchedule, "schedule", "daily", "Collection schedule: daily, weekly, every_6h, every_12h")
	_ = quickstartCmd.MarkFlagRequired("name")
	_ = quickstartCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(quickstartCmd)
}

func runQuickstart(cmd *cobra.Command, args []string) error {
	token := quickToken
	if token == "" {
		token = prompt.ReadSecret("GitHub personal access token")
		if token == "" {
			return fmt.Errorf("a GitHub token is required")
		}
	}

	prov, err := newProvisioner()
	if err != nil {
		return err
	}

	fmt.Printf("\n📡 Provisioning %q for %s...\n", quickName, quickRepo)
	result, err := prov.CreateFullProject(quickName, quickRepo, token, quickSchedule)
	if err != nil {
		return err
	}

	printProvisionResult(result)
	return nil
}
