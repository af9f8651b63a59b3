package slackbot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
	"github.com/ftpr-metrics/devlake-bot/internal/repolist"
)

// Modal callback and block identifiers.
const (
	createProjectCallbackID = "create_project_modal"
	addReposCallbackID      = "add_repos_modal"

	blockProjectName = "project_name_block"
	blockGitHubToken = "github_token_block"
	blockGitHubRepos = "github_repos_block"
	blockGitLabToken = "gitlab_token_block"
	blockGitLabRepos = "gitlab_repos_block"
	blockSchedule    = "schedule_block"
	blockProject     = "project_block"
	blockConnection  = "connection_block"
	blockRepos       = "repos_block"

	actionProjectName = "project_name_input"
	actionGitHubToken = "github_token_input"
	actionGitHubRepos = "github_repos_input"
	actionGitLabToken = "gitlab_token_input"
	actionGitLabRepos = "gitlab_repos_input"
	actionSchedule    = "schedule_select"
	actionProject     = "project_select"
	actionConnection  = "connection_select"
	actionRepos       = "repos_input"
	actionPagePrefix  = "projects_"
)

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func textInput(blockID, label, hint, placeholder, actionID string, multiline, optional bool) *slack.InputBlock {
	element := slack.NewPlainTextInputBlockElement(plainText(placeholder), actionID)
	element.Multiline = multiline
	var hintObj *slack.TextBlockObject
	if hint != "" {
		hintObj = plainText(hint)
	}
	block := slack.NewInputBlock(blockID, plainText(label), hintObj, element)
	block.Optional = optional
	return block
}

// createProjectModal builds the project-creation form. The channel id is
// carried in private metadata so results can be posted back to it.
func createProjectModal(channelID string) slack.ModalViewRequest {
	var options []*slack.OptionBlockObject
	for _, key := range devlake.ScheduleKeys() {
		options = append(options, slack.NewOptionBlockObject(key, plainText(devlake.ScheduleLabel(key)), nil))
	}
	scheduleSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Select schedule"), actionSchedule, options...)
	scheduleSelect.InitialOption = options[0]

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      createProjectCallbackID,
		PrivateMetadata: channelID,
		Title:           plainText("Create DevLake Project"),
		Submit:          plainText("Create"),
		Close:           plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			textInput(blockProjectName, "Project Name",
				"💡 Tip: Use an existing project name to add a new connection (e.g., add GitLab to a GitHub-only project)",
				"my-project", actionProjectName, false, false),
			slack.NewDividerBlock(),
			slack.NewHeaderBlock(plainText("🐙 GitHub")),
			textInput(blockGitHubToken, "GitHub Personal Access Token",
				"Use /devlake-requirements for scopes. Optional if using GitLab only.",
				"ghp_****", actionGitHubToken, false, true),
			textInput(blockGitHubRepos, "GitHub Repositories",
				"One per line: owner/repo-name",
				"kubernetes/kubernetes\nowner/repo1\nowner/repo2", actionGitHubRepos, true, true),
			slack.NewDividerBlock(),
			slack.NewHeaderBlock(plainText("🦊 GitLab")),
			textInput(blockGitLabToken, "GitLab Personal Access Token",
				"Use /devlake-requirements for scopes. Optional if using GitHub only.",
				"glpat-****", actionGitLabToken, false, true),
			textInput(blockGitLabRepos, "GitLab Projects",
				"One per line: group/project-name",
				"gitlab-org/gitlab\ngroup/project1\ngroup/project2", actionGitLabRepos, true, true),
			slack.NewDividerBlock(),
			slack.NewInputBlock(blockSchedule, plainText("Collection Schedule"), nil, scheduleSelect),
		}},
	}
}

// addReposModal builds the add-repos form from the fan-out read results.
func addReposModal(channelID string, data *devlake.FormData) slack.ModalViewRequest {
	var connOptions []*slack.OptionBlockObject
	for _, conn := range data.GitHubConnections {
		connOptions = append(connOptions, slack.NewOptionBlockObject(
			fmt.Sprintf("github:%d", conn.ID),
			plainText(fmt.Sprintf("🐙 %s (ID: %d)", conn.Name, conn.ID)), nil))
	}
	for _, conn := range data.GitLabConnections {
		connOptions = append(connOptions, slack.NewOptionBlockObject(
			fmt.Sprintf("gitlab:%d", conn.ID),
			plainText(fmt.Sprintf("🦊 %s (ID: %d)", conn.Name, conn.ID)), nil))
	}

	var projectOptions []*slack.OptionBlockObject
	if data.Projects != nil {
		for _, proj := range data.Projects.Projects {
			projectOptions = append(projectOptions, slack.NewOptionBlockObject(proj.Name, plainText(proj.Name), nil))
		}
	}

	projectSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Choose a project"), actionProject, projectOptions...)
	connSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Choose a connection"), actionConnection, connOptions...)

	projectBlock := slack.NewInputBlock(blockProject, plainText("Select Project"), plainText("The project that will collect data from these repos"), projectSelect)
	connBlock := slack.NewInputBlock(blockConnection, plainText("Select Connection"), nil, connSelect)

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      addReposCallbackID,
		PrivateMetadata: channelID,
		Title:           plainText("Add Repos to Project"),
		Submit:          plainText("Add"),
		Close:           plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			projectBlock,
			connBlock,
			textInput(blockRepos, "Repositories/Projects",
				"One per line: owner/repo for GitHub or group/project for GitLab",
				"owner/repo1\nowner/repo2\ngroup/project1", actionRepos, true, false),
		}},
	}
}

// createSubmission holds the parsed create-project form values.
type createSubmission struct {
	ProjectName string
	GitHubToken string
	GitHubRepos []string
	GitLabToken string
	GitLabRepos []string
	Schedule    string
}

// stateValue reads one input value out of a view state.
func stateValue(state *slack.ViewState, blockID, actionID string) string {
	if state == nil {
		return ""
	}
	if block, ok := state.Values[blockID]; ok {
		return strings.TrimSpace(block[actionID].Value)
	}
	return ""
}

func stateSelection(state *slack.ViewState, blockID, actionID string) string {
	if state == nil {
		return ""
	}
	if block, ok := state.Values[blockID]; ok {
		return block[actionID].SelectedOption.Value
	}
	return ""
}

// parseCreateSubmission extracts and validates the create-project form.
// The returned map is non-empty when validation failed, keyed by block id
// for Slack's inline error rendering.
func parseCreateSubmission(view *slack.View) (*createSubmission, map[string]string) {
	sub := &createSubmission{
		ProjectName: stateValue(view.State, blockProjectName, actionProjectName),
		GitHubToken: stateValue(view.State, blockGitHubToken, actionGitHubToken),
		GitHubRepos: repolist.ParseText(stateValue(view.State, blockGitHubRepos, actionGitHubRepos)),
		GitLabToken: stateValue(view.State, blockGitLabToken, actionGitLabToken),
		GitLabRepos: repolist.ParseText(stateValue(view.State, blockGitLabRepos, actionGitLabRepos)),
		Schedule:    stateSelection(view.State, blockSchedule, actionSchedule),
	}

	errs := make(map[string]string)
	if len(sub.GitHubRepos) == 0 && len(sub.GitLabRepos) == 0 {
		errs[blockGitHubRepos] = "At least one GitHub or GitLab repository is required"
		errs[blockGitLabRepos] = "At least one GitHub or GitLab repository is required"
	}
	if len(sub.GitHubRepos) > 0 && sub.GitHubToken == "" {
		errs[blockGitHubToken] = "GitHub token required when repositories are provided"
	}
	if len(sub.GitLabRepos) > 0 && sub.GitLabToken == "" {
		errs[blockGitLabToken] = "GitLab token required when projects are provided"
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return sub, nil
}

// addReposSubmission holds the parsed add-repos form values.
type addReposSubmission struct {
	ProjectName  string
	Plugin       string
	ConnectionID int
	Repos        []string
}

// parseAddReposSubmission extracts the add-repos form. The connection
// value carries "plugin:id".
func parseAddReposSubmission(view *slack.View) (*addReposSubmission, error) {
	connValue := stateSelection(view.State, blockConnection, actionConnection)
	plugin, idStr, found := strings.Cut(connValue, ":")
	if !found {
		return nil, fmt.Errorf("invalid connection selection %q", connValue)
	}
	connID, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection id %q", idStr)
	}

	return &addReposSubmission{
		ProjectName:  stateSelection(view.State, blockProject, actionProject),
		Plugin:       plugin,
		ConnectionID: connID,
		Repos:        repolist.ParseText(stateValue(view.State, blockRepos, actionRepos)),
	}, nil
}

// projectListBlocks builds one page of the paginated project list with
// prev/next buttons.
func projectListBlocks(list *devlake.ProjectList, page, pageSize int) []slack.Block {
	total := list.Count
	showing := len(list.Projects)
	start := (page-1)*pageSize + 1
	end := start + showing - 1

	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText(fmt.Sprintf("📊 DevLake Projects (%d-%d of %d)", start, end, total))),
		slack.NewDividerBlock(),
	}
	for _, project := range list.Projects {
		text := fmt.Sprintf("*%s*", project.Name)
		if project.Blueprint != nil && project.Blueprint.Name != "" {
			text += fmt.Sprintf("\n_Blueprint: %s_", project.Blueprint.Name)
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}

	hasMore := total > page*pageSize
	hasPrev := page > 1
	if hasMore || hasPrev {
		var buttons []slack.BlockElement
		if hasPrev {
			buttons = append(buttons, slack.NewButtonBlockElement(
				fmt.Sprintf("projects_prev_%d", page), strconv.Itoa(page-1), plainText("⬅️ Previous")))
		}
		if hasMore {
			buttons = append(buttons, slack.NewButtonBlockElement(
				fmt.Sprintf("projects_next_%d", page), strconv.Itoa(page+1), plainText("Show More ➡️")))
		}
		blocks = append(blocks, slack.NewActionBlock("projects_pagination", buttons...))
	}
	return blocks
}
