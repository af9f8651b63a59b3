package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	projectsPage int
	projectsAll  bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List DevLake projects",
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().IntVar(&projectsPage, "page", 1, "Page to show (10 per page)")
	projectsCmd.Flags().BoolVar(&projectsAll, "all", false, "Walk all pages and show every project")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	prov, err := newProvisioner()
	if err != nil {
		return err
	}

	if projectsAll {
		projects, err := prov.ListAllProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("  %s\n", p.Name)
		}
		fmt.Printf("\n%d project(s) total\n", len(projects))
		return nil
	}

	const pageSize = 10
	list, err := prov.GetProjects(projectsPage, pageSize)
	if err != nil {
		return err
	}
	if list.Count == 0 {
		fmt.Println("No projects found.")
		return nil
	}
	for _, p := range list.Projects {
		line := fmt.Sprintf("  %s", p.Name)
		if p.Blueprint != nil && p.Blueprint.Name != "" {
			line += fmt.Sprintf("  (blueprint: %s)", p.Blueprint.Name)
		}
		fmt.Println(line)
	}
	fmt.Printf("\nPage %d, %d project(s) total\n", projectsPage, list.Count)
	return nil
}
