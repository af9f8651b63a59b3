package slackbot

import (
	"fmt"
	"strings"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
)

// plural returns "s" for counts other than one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// createSuccessMessage renders the detailed ephemeral confirmation after a
// project has been provisioned.
func createSuccessMessage(result *devlake.ProvisionResult, schedule string, githubRepos, gitlabRepos []string) string {
	var repoList []string
	if len(githubRepos) > 0 {
		repoList = append(repoList, fmt.Sprintf("🐙 *GitHub:* %s", strings.Join(githubRepos, ", ")))
	}
	if len(gitlabRepos) > 0 {
		repoList = append(repoList, fmt.Sprintf("🦊 *GitLab:* %s", strings.Join(gitlabRepos, ", ")))
	}

	msg := fmt.Sprintf("✅ *Project '%s' created successfully!*\n\n"+
		"📊 *Dashboard:* %s\n"+
		"🔄 *First collection started* (Pipeline ID: %d)\n"+
		"📅 *Schedule:* %s\n"+
		"🔗 *Repositories:*\n%s",
		result.Project, result.DashboardURL, result.PipelineID, schedule, strings.Join(repoList, "\n"))

	if len(result.Failed) > 0 {
		suffix := "ies"
		if len(result.Failed) == 1 {
			suffix = "y"
		}
		msg += fmt.Sprintf("\n\n⚠️ %d repositor%s could not be added:\n", len(result.Failed), suffix)
		for _, f := range result.Failed {
			msg += fmt.Sprintf("• %s (%s)\n", f.Repo, f.Reason)
		}
	}
	return msg
}

// createFailureMessage renders the ephemeral error shown when provisioning
// fails outright. The error text is already sanitized by the client.
func createFailureMessage(err error) string {
	return fmt.Sprintf("❌ *Failed to create project*\n\n"+
		"Error: %s\n\n"+
		"Please check:\n"+
		"• Tokens are valid and have required scopes\n"+
		"• Repository names are correct (owner/repo)\n"+
		"• Project name is unique", err)
}

// addReposMessage renders the success/failure breakdown after adding repos
// to an existing project.
func addReposMessage(result *devlake.AddReposResult) string {
	var msg string
	if len(result.Added) > 0 {
		msg += fmt.Sprintf("✅ Successfully added %d repo%s to project '%s':\n• %s",
			len(result.Added), plural(len(result.Added)), result.Project, strings.Join(result.Added, "\n• "))
	}
	if len(result.Failed) > 0 {
		if msg != "" {
			msg += "\n\n"
		}
		var lines []string
		for _, f := range result.Failed {
			lines = append(lines, fmt.Sprintf("%s (%s)", f.Repo, f.Reason))
		}
		msg += fmt.Sprintf("❌ Failed to add %d repo%s:\n• %s",
			len(result.Failed), plural(len(result.Failed)), strings.Join(lines, "\n• "))
		msg += "\n\n*Common reasons:*\n" +
			"• Repo/project doesn't exist\n" +
			"• Not accessible with this connection's token\n" +
			"• Wrong repo path format (use owner/repo or group/project)"
	}
	if msg == "" {
		msg = "❌ No repos were processed. Please check your input."
	}
	if len(result.Added) > 0 && !result.Linked {
		msg += "\n\n⚠️ The repos were added to the connection but could not be linked to the project's blueprint yet. Re-run the command to retry linking."
	}
	return msg
}

// requirementsText explains the PAT scopes needed before provisioning.
func requirementsText() string {
	return `
*🔐 GitHub/GitLab Token Requirements*

Before creating a DevLake project, you need a Personal Access Token (PAT) with the correct permissions.

---

*GitHub PAT Permissions:*

For *public repositories*:
• ` + "`repo:status`" + `
• ` + "`repo_deployment`" + `
• ` + "`read:user`" + `
• ` + "`read:org`" + `

For *private repositories*:
• ` + "`repo`" + ` (full repo access)
• ` + "`read:user`" + `
• ` + "`read:org`" + `

📖 *How to create GitHub PAT:*
<https://devlake.apache.org/docs/Configuration/GitHub|DevLake GitHub Configuration Guide>

---

*GitLab PAT Permissions:*

Required scope:
• ` + "`read_api`" + `

⚠️ *Important:* Make sure you are NOT a Guest in the project!
• Go to Project information → Members
• Check your role in "Max role" column
• Must be Developer, Maintainer, or Owner (not Guest)

📖 *How to create GitLab PAT:*
<https://devlake.apache.org/docs/Configuration/GitLab|DevLake GitLab Configuration Guide>

---

💡 *Tip:* Keep your token safe! The bot never stores it - it's sent directly to DevLake.

*Ready to create a project?* Use ` + "`/devlake-create-project`"
}

// helpText lists the available commands and chat phrases.
func helpText(dashboardURL string) string {
	return fmt.Sprintf(`
*DevLake Slack Bot - Help*

*Slash Commands:*

`+"`/devlake-create-project`"+`
Create a brand new DevLake project with new connections.
Supports GitHub and/or GitLab repositories.
💡 *Tip:* Use an existing project name to add a new connection (e.g., add GitLab to a GitHub-only project).

`+"`/devlake-add-repos`"+`
Add more repositories/projects to an existing connection.
Select a connection and provide repos to add.

`+"`/devlake-requirements`"+`
Show GitHub/GitLab token requirements and how to create PATs.
⭐ *Read this before creating a project!*

`+"`/devlake-list-projects`"+`
List existing DevLake projects (shows 10 per page with "Show More" button).

`+"`/devlake-list-all`"+`
List all DevLake projects at once (may be slow if many projects).

`+"`/devlake-help`"+`
Show this help message.

*Chat with me:*
You can also DM me or mention me in a channel! Try:
• `+"`@DevLake list projects`"+`
• `+"`@DevLake help`"+`
• `+"`@DevLake requirements`"+` (token help)

*Security Note:*
Your Personal Access Token is sent directly to DevLake and is never stored by this bot. It exists in memory only during project creation.

*DevLake Dashboard:*
%s`, dashboardURL)
}

// allProjectsMessage renders the full project list.
func allProjectsMessage(projects []devlake.Project) string {
	if len(projects) == 0 {
		return "No projects found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*All DevLake Projects (%d total):*\n\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(&b, "• *%s*\n", p.Name)
	}
	fmt.Fprintf(&b, "\n_Total: %d projects_", len(projects))
	return b.String()
}
