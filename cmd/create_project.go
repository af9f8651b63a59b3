package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
	"github.com/ftpr-metrics/devlake-bot/internal/prompt"
	"github.com/ftpr-metrics/devlake-bot/internal/repolist"
)

var (
	createName         string
	createGitHubRepos  []string
	createGitHubToken  string
	createGitHubConnID int
	createGitLabRepos  []string
	createGitLabToken  string
	createGitLabConnID int
	createSchedule     string
	createReposFile    string
)

var createProjectCmd = &cobra.Command{
	Use:   "create-project",
	Short: "Create a DevLake project from GitHub and/or GitLab repos",
	Long: `Creates (or extends) a DevLake project: connections, scope config,
scopes, blueprint, and the first collection run.

Repos that cannot be resolved are reported and skipped; the project is
still created as long as at least one repo succeeds. Using the name of
an existing project adds the new scopes to its blueprint instead.

Examples:
  devlake-bot create-project --name acme --github-repos acme/widget --github-token ghp_xxx
  devlake-bot create-project --name acme --github-connection-id 3 --repos-file repos.csv
  devlake-bot create-project --name acme --gitlab-repos group/app --gitlab-token glpat-xxx --schedule weekly`,
	RunE: runCreateProject,
}

func init() {
	createProjectCmd.Flags().StringVar(&createName, "name", "", "Project name (required)")
	createProjectCmd.Flags().StringSliceVar(&createGitHubRepos, "github-repos", nil, "GitHub repos (owner/repo, comma-separated)")
	createProjectCmd.Flags().StringVar(&createGitHubToken, "github-token", "", "GitHub PAT (prompted if repos given without a connection)")
	createProjectCmd.Flags().IntVar(&createGitHubConnID, "github-connection-id", 0, "Reuse an existing GitHub connection")
	createProjectCmd.Flags().StringSliceVar(&createGitLabRepos, "gitlab-repos", nil, "GitLab projects (group/project, comma-separated)")
	createProjectCmd.Flags().StringVar(&createGitLabToken, "gitlab-token", "", "GitLab PAT (prompted if repos given without a connection)")
	createProjectCmd.Flags().IntVar(&createGitLabConnID, "gitlab-connection-id", 0, "Reuse an existing GitLab connection")
	createProjectCmd.Flags().StringVar(&createSchedule, "schedule", "daily", "Collection schedule: daily, weekly, every_6h, every_12h")
	createProjectCmd.Flags().StringVar(&createReposFile, "repos-file", "", "File with GitHub repos, one per line")
	_ = createProjectCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createProjectCmd)
}

func runCreateProject(cmd *cobra.Command, args []string) error {
	githubRepos := createGitHubRepos
	if createReposFile != "" {
		fromFile, err := repolist.ParseFile(createReposFile)
		if err != nil {
			return fmt.Errorf("read repos file: %w", err)
		}
		githubRepos = append(githubRepos, fromFile...)
	}

	if len(githubRepos) == 0 && len(createGitLabRepos) == 0 {
		return fmt.Errorf("at least one of --github-repos, --gitlab-repos, or --repos-file is required")
	}

	githubToken := createGitHubToken
	if len(githubRepos) > 0 && githubToken == "" && createGitHubConnID == 0 {
		githubToken = prompt.ReadSecret("GitHub personal access token")
		if githubToken == "" {
			return fmt.Errorf("a GitHub token or --github-connection-id is required")
		}
	}
	gitlabToken := createGitLabToken
	if len(createGitLabRepos) > 0 && gitlabToken == "" && createGitLabConnID == 0 {
		gitlabToken = prompt.ReadSecret("GitLab personal access token")
		if gitlabToken == "" {
			return fmt.Errorf("a GitLab token or --gitlab-connection-id is required")
		}
	}

	prov, err := newProvisioner()
	if err != nil {
		return err
	}

	fmt.Printf("\n📡 Creating project %q (%d GitHub, %d GitLab repos)...\n",
		createName, len(githubRepos), len(createGitLabRepos))

	result, err := prov.CreateMultiPlatformProject(&devlake.MultiPlatformRequest{
		ProjectName: createName,
		Schedule:    createSchedule,
		GitHub: devlake.PlatformRequest{
			Repos:        githubRepos,
			Token:        githubToken,
			ConnectionID: createGitHubConnID,
		},
		GitLab: devlake.PlatformRequest{
			Repos:        createGitLabRepos,
			Token:        gitlabToken,
			ConnectionID: createGitLabConnID,
		},
	})
	if err != nil {
		return err
	}

	printProvisionResult(result)
	return nil
}

func printProvisionResult(result *devlake.ProvisionResult) {
	fmt.Println("\n" + strings.Repeat("─", 50))
	fmt.Printf("✅ Project %q is ready\n", result.Project)
	fmt.Printf("   Blueprint ID: %d\n", result.BlueprintID)
	fmt.Printf("   Pipeline ID:  %d (first collection started)\n", result.PipelineID)
	fmt.Printf("   Dashboard:    %s\n", result.DashboardURL)
	for _, repo := range result.Added {
		fmt.Printf("   + %s\n", repo)
	}
	for _, f := range result.Failed {
		fmt.Printf("   ⚠️  %s: %s\n", f.Repo, f.Reason)
	}
	fmt.Println(strings.Repeat("─", 50))
}
