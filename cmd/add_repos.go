package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
	"github.com/ftpr-metrics/devlake-bot/internal/repolist"
)

var (
	addProject   string
	addPlugin    string
	addConnID    int
	addRepoList  []string
	addReposFile string
)

var addReposCmd = &cobra.Command{
	Use:   "add-repos",
	Short: "Add repos to an existing project via an existing connection",
	Long: `Adds repositories to an existing connection's scopes and links them
into the project's blueprint. The connection's stored token is used, so
no PAT is needed here.

Examples:
  devlake-bot add-repos --project acme --plugin github --connection-id 3 --repos acme/api,acme/web
  devlake-bot add-repos --project acme --plugin gitlab --connection-id 1 --repos-file projects.txt`,
	RunE: runAddRepos,
}

func init() {
	addReposCmd.Flags().StringVar(&addProject, "project", "", "Existing project name (required)")
	addReposCmd.Flags().StringVar(&addPlugin, "plugin", devlake.PluginGitHub, "Connection plugin: github or gitlab")
	addReposCmd.Flags().IntVar(&addConnID, "connection-id", 0, "Existing connection ID (required)")
	addReposCmd.Flags().StringSliceVar(&addRepoList, "repos", nil, "Repos to add (comma-separated)")
	addReposCmd.Flags().StringVar(&addReposFile, "repos-file", "", "File with repos, one per line")
	_ = addReposCmd.MarkFlagRequired("project")
	_ = addReposCmd.MarkFlagRequired("connection-id")
	rootCmd.AddCommand(addReposCmd)
}

func runAddRepos(cmd *cobra.Command, args []string) error {
	if addPlugin != devlake.PluginGitHub && addPlugin != devlake.PluginGitLab {
		return fmt.Errorf("unknown plugin %q (valid: github, gitlab)", addPlugin)
	}

	repos := addRepoList
	if addReposFile != "" {
		fromFile, err := repolist.ParseFile(addReposFile)
		if err != nil {
			return fmt.Errorf("read repos file: %w", err)
		}
		repos = append(repos, fromFile...)
	}
	if len(repos) == 0 {
		return fmt.Errorf("at least one of --repos or --repos-file is required")
	}

	prov, err := newProvisioner()
	if err != nil {
		return err
	}

	fmt.Printf("\n📡 Adding %d repo(s) to %q via %s connection %d...\n",
		len(repos), addProject, addPlugin, addConnID)

	result, err := prov.AddRepos(addProject, addPlugin, addConnID, repos)
	if err != nil {
		return err
	}

	for _, repo := range result.Added {
		fmt.Printf("   ✅ %s\n", repo)
	}
	for _, f := range result.Failed {
		fmt.Printf("   ⚠️  %s: %s\n", f.Repo, f.Reason)
	}
	if len(result.Added) > 0 && !result.Linked {
		fmt.Println("   ⚠️  Scopes were added but linking them to the blueprint failed; re-run to retry")
	}
	if len(result.Added) == 0 {
		return fmt.Errorf("no repos could be added")
	}
	return nil
}
