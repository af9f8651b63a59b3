package devlake

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ftpr-metrics/devlake-bot/internal/config"
)

// collectWindow is how far back the initial collection reaches.
const collectWindow = 30 * 24 * time.Hour

const timeAfterLayout = "2006-01-02T15:04:05Z"

// Provisioner composes client and resolver calls into the provisioning
// workflows: create a project across one or both platforms, or add
// repositories to an existing one.
type Provisioner struct {
	client *Client
	cfg    *config.Config
	log    zerolog.Logger
}

// NewProvisioner creates a Provisioner. The config is read-only.
func NewProvisioner(client *Client, cfg *config.Config, log zerolog.Logger) *Provisioner {
	return &Provisioner{client: client, cfg: cfg, log: log}
}

// RepoFailure records one repository that could not be added, with a
// sanitized reason safe to show to the user.
type RepoFailure struct {
	Repo   string
	Reason string
}

// ProvisionResult is the outcome of a provisioning request. Added and
// Failed keep the insertion order of the user-supplied repo lists; the
// operation is partial-success-tolerant, so Success can be true with a
// non-empty Failed list.
type ProvisionResult struct {
	Success bool
	Project string
	// ConnectionIDs maps plugin name to the connection each platform's
	// repos were attached to, whether reused or freshly created.
	ConnectionIDs map[string]int
	BlueprintID   int
	PipelineID    int
	DashboardURL  string
	Added         []string
	Failed        []RepoFailure
}

// PlatformRequest is the per-platform slice of a provisioning request.
// Either ConnectionID (reuse) or Token (create) must be set when Repos is
// non-empty.
type PlatformRequest struct {
	Repos        []string
	Token        string
	ConnectionID int
}

// MultiPlatformRequest describes a create-or-extend provisioning request
// spanning GitHub and/or GitLab.
type MultiPlatformRequest struct {
	ProjectName string
	Schedule    string
	GitHub      PlatformRequest
	GitLab      PlatformRequest
}

// defaultMetrics enables the metric plugins every provisioned project gets.
func defaultMetrics() []ProjectMetric {
	return []ProjectMetric{
		{PluginName: "dora", Enable: true},
		{PluginName: "issue_trace", Enable: true},
	}
}

// CreateFullProject is the legacy single-platform path: one GitHub repo,
// one token, a fresh connection every time. Terminal on first failure.
func (p *Provisioner) CreateFullProject(projectName, repoFullName, githubToken, schedule string) (*ProvisionResult, error) {
	cron, err := CronForSchedule(schedule)
	if err != nil {
		return nil, err
	}

	conn, err := p.client.CreateGitHubConnection(projectName+"-connection", githubToken, p.cfg.GitHubEndpoint)
	if err != nil {
		return nil, err
	}
	// Token is out of scope from here on.

	scopeConfig, err := p.client.CreateScopeConfig(PluginGitHub, conn.ID, projectName)
	if err != nil {
		return nil, err
	}

	githubID, err := p.addGitHubScope(conn.ID, repoFullName, scopeConfig.ID)
	if err != nil {
		return nil, err
	}

	project, err := p.client.CreateProject(&ProjectCreateRequest{
		Name:    projectName,
		Enable:  true,
		Metrics: defaultMetrics(),
		Blueprint: &BlueprintSpec{
			Name:        projectName + "-Blueprint",
			ProjectName: projectName,
			Mode:        "NORMAL",
			Enable:      true,
			CronConfig:  cron,
			Plan: [][]PlanStage{{{
				Plugin:  PluginGitHub,
				Options: PlanOptions{ConnectionID: conn.ID, GithubID: githubID},
			}}},
		},
	})
	if err != nil {
		return nil, err
	}
	if project.Blueprint == nil {
		return nil, fmt.Errorf("project %q was created without a blueprint", projectName)
	}

	pipeline, err := p.client.TriggerBlueprint(project.Blueprint.ID)
	if err != nil {
		return nil, err
	}

	return &ProvisionResult{
		Success:       true,
		Project:       projectName,
		ConnectionIDs: map[string]int{PluginGitHub: conn.ID},
		BlueprintID:   project.Blueprint.ID,
		PipelineID:    pipeline.ID,
		DashboardURL:  p.cfg.DashboardURL,
		Added:         []string{repoFullName},
	}, nil
}

// CreateMultiPlatformProject is the primary provisioning path: for each
// platform it reuses or creates a connection and scope-config, adds every
// listed repository (collecting per-repo failures instead of aborting),
// then creates or extends the project, re-asserts the blueprint plan, and
// triggers the first run.
func (p *Provisioner) CreateMultiPlatformProject(req *MultiPlatformRequest) (*ProvisionResult, error) {
	cron, err := CronForSchedule(req.Schedule)
	if err != nil {
		return nil, err
	}

	result := &ProvisionResult{
		Project:       req.ProjectName,
		ConnectionIDs: make(map[string]int),
		DashboardURL:  p.cfg.DashboardURL,
	}
	var refs []ScopeRef

	if len(req.GitHub.Repos) > 0 {
		connID, err := p.ensureConnection(PluginGitHub, req.ProjectName, &req.GitHub)
		if err != nil {
			return result, err
		}
		result.ConnectionIDs[PluginGitHub] = connID
		scopeConfigID, err := p.ensureScopeConfig(PluginGitHub, connID, req.ProjectName)
		if err != nil {
			return result, err
		}
		for _, repo := range req.GitHub.Repos {
			githubID, err := p.addGitHubScope(connID, repo, scopeConfigID)
			if err != nil {
				p.log.Warn().Str("repo", repo).Err(err).Msg("failed to add GitHub scope")
				result.Failed = append(result.Failed, RepoFailure{Repo: repo, Reason: failureReason(err)})
				continue
			}
			result.Added = append(result.Added, repo)
			refs = append(refs, ScopeRef{
				Plugin:       PluginGitHub,
				ConnectionID: connID,
				ScopeID:      fmt.Sprintf("github:GithubRepo:%d:%d", connID, githubID),
			})
		}
	}

	if len(req.GitLab.Repos) > 0 {
		connID, err := p.ensureConnection(PluginGitLab, req.ProjectName, &req.GitLab)
		if err != nil {
			return result, err
		}
		result.ConnectionIDs[PluginGitLab] = connID
		scopeConfigID, err := p.ensureScopeConfig(PluginGitLab, connID, req.ProjectName)
		if err != nil {
			return result, err
		}
		for _, proj := range req.GitLab.Repos {
			gitlabID, err := p.addGitLabScope(connID, proj, scopeConfigID)
			if err != nil {
				p.log.Warn().Str("project", proj).Err(err).Msg("failed to add GitLab scope")
				result.Failed = append(result.Failed, RepoFailure{Repo: proj, Reason: failureReason(err)})
				continue
			}
			result.Added = append(result.Added, proj)
			refs = append(refs, ScopeRef{
				Plugin:       PluginGitLab,
				ConnectionID: connID,
				ScopeID:      fmt.Sprintf("gitlab:GitlabProject:%d:%d", connID, gitlabID),
			})
		}
	}

	// Tokens are out of scope from here on.

	if len(refs) == 0 {
		return result, fmt.Errorf("no repositories could be added for project %q", req.ProjectName)
	}

	timeAfter := time.Now().UTC().Add(-collectWindow).Format(timeAfterLayout)

	project, createErr := p.client.CreateProject(&ProjectCreateRequest{
		Name:    req.ProjectName,
		Enable:  true,
		Metrics: defaultMetrics(),
		Blueprint: &BlueprintSpec{
			Name:        req.ProjectName + "-Blueprint",
			ProjectName: req.ProjectName,
			Mode:        "NORMAL",
			Enable:      true,
			CronConfig:  cron,
			TimeAfter:   timeAfter,
			Settings:    &BlueprintSettings{Version: "2.0.0", Connections: groupSettingsRefs(refs)},
		},
	})

	var blueprintID int
	switch {
	case createErr == nil && project.Blueprint != nil:
		blueprintID = project.Blueprint.ID
	case createErr != nil:
		// Project names are unique; a failed create for a name that
		// resolves is treated as "extend the existing project".
		existing, getErr := p.client.GetProject(req.ProjectName)
		if getErr != nil || existing.Blueprint == nil {
			return result, fmt.Errorf("failed to create project %q: %w", req.ProjectName, createErr)
		}
		p.log.Info().Str("project", req.ProjectName).Msg("project exists, extending its blueprint")
		blueprintID = existing.Blueprint.ID
	default:
		return result, fmt.Errorf("project %q was created without a blueprint", req.ProjectName)
	}

	// Re-state the connections and window in a follow-up patch. Embedding
	// at creation time has been observed to not always persist, and in the
	// extend case this is where the new scopes are merged in.
	bp, err := p.client.GetBlueprint(blueprintID)
	if err != nil {
		return result, err
	}
	no := false
	patch := &BlueprintPatch{
		Connections:    mergeConnections(bp.Connections, groupScopeRefs(refs)),
		TimeAfter:      timeAfter,
		CronConfig:     cron,
		SkipCollectors: &no,
		FullSync:       &no,
	}
	if _, err := p.client.PatchBlueprint(blueprintID, patch); err != nil {
		return result, err
	}

	pipeline, err := p.client.TriggerBlueprint(blueprintID)
	if err != nil {
		return result, err
	}

	result.Success = true
	result.BlueprintID = blueprintID
	result.PipelineID = pipeline.ID
	return result, nil
}

// AddReposResult is the outcome of adding repositories to an existing
// connection and linking them to a project.
type AddReposResult struct {
	Project   string
	Added     []string
	Failed    []RepoFailure
	ScopeIDs  []string
	Linked    bool
	LinkError string
}

// AddRepos attaches repositories to an existing connection, reusing its
// scope-config, and links the added scopes into the project's blueprint.
// A linking failure is reported but does not roll back the added scopes.
func (p *Provisioner) AddRepos(projectName, plugin string, connID int, repos []string) (*AddReposResult, error) {
	connName := p.connectionName(plugin, connID)

	scopeConfigID, err := p.ensureScopeConfig(plugin, connID, connName)
	if err != nil {
		return nil, err
	}

	result := &AddReposResult{Project: projectName}
	for _, repo := range repos {
		var repoID int
		var addErr error
		if plugin == PluginGitLab {
			repoID, addErr = p.addGitLabScope(connID, repo, scopeConfigID)
		} else {
			repoID, addErr = p.addGitHubScope(connID, repo, scopeConfigID)
		}
		if addErr != nil {
			p.log.Warn().Str("repo", repo).Err(addErr).Msg("failed to add scope")
			result.Failed = append(result.Failed, RepoFailure{Repo: repo, Reason: failureReason(addErr)})
			continue
		}
		result.Added = append(result.Added, repo)
		result.ScopeIDs = append(result.ScopeIDs, strconv.Itoa(repoID))
	}

	if len(result.ScopeIDs) > 0 {
		if err := p.linkScopesToProject(projectName, plugin, connID, result.ScopeIDs); err != nil {
			// Scopes stay attached to the connection even when linking
			// fails; the caller can retry the link without re-adding.
			p.log.Error().Str("project", projectName).Err(err).Msg("failed to link scopes to project")
			result.LinkError = err.Error()
		} else {
			result.Linked = true
		}
	}
	return result, nil
}

// linkScopesToProject merges scope ids into the matching connection entry
// of the project's blueprint (union, never replacement) and patches it.
func (p *Provisioner) linkScopesToProject(projectName, plugin string, connID int, scopeIDs []string) error {
	project, err := p.client.GetProject(projectName)
	if err != nil {
		return err
	}
	if project.Blueprint == nil {
		return fmt.Errorf("project %q has no blueprint", projectName)
	}

	bp, err := p.client.GetBlueprint(project.Blueprint.ID)
	if err != nil {
		return err
	}

	var scopes []BlueprintScope
	for _, id := range scopeIDs {
		scopes = append(scopes, BlueprintScope{ScopeID: id})
	}
	addition := []BlueprintConnection{{PluginName: plugin, ConnectionID: connID, Scopes: scopes}}

	p.log.Info().Int("blueprintId", bp.ID).Int("scopes", len(scopeIDs)).Msg("linking scopes to project")
	_, err = p.client.PatchBlueprint(bp.ID, &BlueprintPatch{
		Connections: mergeConnections(bp.Connections, addition),
	})
	return err
}

// FormData is what the interactive add-repos form needs up front.
type FormData struct {
	GitHubConnections []Connection
	GitLabConnections []Connection
	Projects          *ProjectList
}

// FetchFormData performs the three independent reads behind the add-repos
// form concurrently; results are merged only once all three complete.
func (p *Provisioner) FetchFormData() (*FormData, error) {
	var data FormData
	var g errgroup.Group
	g.SetLimit(3)

	g.Go(func() error {
		conns, err := p.client.ListConnections(PluginGitHub)
		data.GitHubConnections = conns
		return err
	})
	g.Go(func() error {
		conns, err := p.client.ListConnections(PluginGitLab)
		data.GitLabConnections = conns
		return err
	})
	g.Go(func() error {
		projects, err := p.client.ListProjects(1, 100)
		data.Projects = projects
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetProjects returns one page of projects. Pages are 1-based.
func (p *Provisioner) GetProjects(page, pageSize int) (*ProjectList, error) {
	return p.client.ListProjects(page, pageSize)
}

// ListAllProjects walks every page of the project list.
func (p *Provisioner) ListAllProjects() ([]Project, error) {
	const pageSize = 50
	var all []Project
	for page := 1; ; page++ {
		list, err := p.client.ListProjects(page, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, list.Projects...)
		if len(list.Projects) < pageSize {
			return all, nil
		}
	}
}

// GetConnections returns all connections for a plugin.
func (p *Provisioner) GetConnections(plugin string) ([]Connection, error) {
	return p.client.ListConnections(plugin)
}

// GetScopeConfigs returns all scope configs for a connection.
func (p *Provisioner) GetScopeConfigs(plugin string, connID int) ([]ScopeConfig, error) {
	return p.client.ListScopeConfigs(plugin, connID)
}

// ensureConnection reuses the supplied connection id or creates one from
// the supplied token. Repos listed with neither is a MissingCredentialError.
func (p *Provisioner) ensureConnection(plugin, projectName string, req *PlatformRequest) (int, error) {
	if req.ConnectionID > 0 {
		p.log.Info().Str("plugin", plugin).Int("connectionId", req.ConnectionID).Msg("reusing existing connection")
		return req.ConnectionID, nil
	}
	if req.Token == "" {
		return 0, &MissingCredentialError{Plugin: plugin}
	}

	var conn *Connection
	var err error
	if plugin == PluginGitLab {
		conn, err = p.client.CreateGitLabConnection(projectName+"-gitlab", req.Token, p.cfg.GitLabEndpoint)
	} else {
		conn, err = p.client.CreateGitHubConnection(projectName+"-github", req.Token, p.cfg.GitHubEndpoint)
	}
	if err != nil {
		return 0, err
	}
	return conn.ID, nil
}

// ensureScopeConfig reuses the first existing scope config on the
// connection or creates exactly one. At most one scope config is ever
// created per connection by this system.
func (p *Provisioner) ensureScopeConfig(plugin string, connID int, name string) (int, error) {
	existing, err := p.client.ListScopeConfigs(plugin, connID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		p.log.Info().Str("plugin", plugin).Int("scopeConfigId", existing[0].ID).Msg("reusing existing scope config")
		return existing[0].ID, nil
	}
	created, err := p.client.CreateScopeConfig(plugin, connID, name)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// addGitHubScope resolves a repo and upserts it as a scope. An empty
// scopes list in the response means the repo was not found or is not
// accessible with the connection's token, a soft per-repo failure.
func (p *Provisioner) addGitHubScope(connID int, fullName string, scopeConfigID int) (int, error) {
	repo, err := p.client.ResolveGitHubRepo(connID, fullName)
	if err != nil {
		return 0, err
	}
	if repo.GithubID == 0 {
		return 0, &NotFoundError{Subject: fmt.Sprintf("repository %q", fullName), Reason: "could not resolve githubId"}
	}
	repo.ScopeConfigID = scopeConfigID

	p.log.Info().Str("repo", fullName).Int("githubId", repo.GithubID).Int("connectionId", connID).Msg("adding GitHub scope")
	envelopes, err := p.client.putScopes(PluginGitHub, connID, []any{repo})
	if err != nil {
		return 0, err
	}
	if len(envelopes) == 0 {
		return 0, &NotFoundError{Subject: fmt.Sprintf("repository %q", fullName), Reason: "not found or no access"}
	}
	if id := envelopes[0].repoID(); id != 0 {
		return id, nil
	}
	return repo.GithubID, nil
}

// addGitLabScope resolves a project and upserts it as a scope, with the
// same soft-failure rule as addGitHubScope.
func (p *Provisioner) addGitLabScope(connID int, fullName string, scopeConfigID int) (int, error) {
	project, err := p.client.ResolveGitLabProject(connID, fullName)
	if err != nil {
		return 0, err
	}
	if project.GitlabID == 0 {
		return 0, &NotFoundError{Subject: fmt.Sprintf("project %q", fullName), Reason: "could not resolve gitlabId"}
	}
	project.ScopeConfigID = scopeConfigID

	p.log.Info().Str("project", fullName).Int("gitlabId", project.GitlabID).Int("connectionId", connID).Msg("adding GitLab scope")
	envelopes, err := p.client.putScopes(PluginGitLab, connID, []any{project})
	if err != nil {
		return 0, err
	}
	if len(envelopes) == 0 {
		return 0, &NotFoundError{Subject: fmt.Sprintf("project %q", fullName), Reason: "not found or no access"}
	}
	if id := envelopes[0].repoID(); id != 0 {
		return id, nil
	}
	return project.GitlabID, nil
}

// connectionName resolves a connection's display name, falling back to a
// generic label when the lookup fails.
func (p *Provisioner) connectionName(plugin string, connID int) string {
	conns, err := p.client.ListConnections(plugin)
	if err == nil {
		for _, c := range conns {
			if c.ID == connID {
				return c.Name
			}
		}
	}
	return fmt.Sprintf("connection-%d", connID)
}

// groupSettingsRefs groups scope refs by (plugin, connection) for embedding
// in blueprint settings, keeping the composite scope ids.
func groupSettingsRefs(refs []ScopeRef) []SettingsConnection {
	var grouped []SettingsConnection
	for _, ref := range refs {
		found := false
		for i := range grouped {
			if grouped[i].Plugin == ref.Plugin && grouped[i].ConnectionID == ref.ConnectionID {
				grouped[i].Scopes = append(grouped[i].Scopes, SettingsScope{ScopeID: ref.ScopeID})
				found = true
				break
			}
		}
		if !found {
			grouped = append(grouped, SettingsConnection{
				Plugin:       ref.Plugin,
				ConnectionID: ref.ConnectionID,
				Scopes:       []SettingsScope{{ScopeID: ref.ScopeID}},
			})
		}
	}
	return grouped
}

// groupScopeRefs converts composite scope refs into blueprint connection
// entries grouped by (plugin, connection), with bare numeric scope ids.
func groupScopeRefs(refs []ScopeRef) []BlueprintConnection {
	var grouped []BlueprintConnection
	for _, ref := range refs {
		parts := strings.Split(ref.ScopeID, ":")
		bare := parts[len(parts)-1]

		found := false
		for i := range grouped {
			if grouped[i].PluginName == ref.Plugin && grouped[i].ConnectionID == ref.ConnectionID {
				grouped[i].Scopes = append(grouped[i].Scopes, BlueprintScope{ScopeID: bare})
				found = true
				break
			}
		}
		if !found {
			grouped = append(grouped, BlueprintConnection{
				PluginName:   ref.Plugin,
				ConnectionID: ref.ConnectionID,
				Scopes:       []BlueprintScope{{ScopeID: bare}},
			})
		}
	}
	return grouped
}

// mergeConnections unions additional connection entries into an existing
// blueprint connections list, deduplicating scopes by id.
func mergeConnections(existing, additions []BlueprintConnection) []BlueprintConnection {
	merged := make([]BlueprintConnection, len(existing))
	copy(merged, existing)

	for _, add := range additions {
		found := false
		for i := range merged {
			if merged[i].PluginName == add.PluginName && merged[i].ConnectionID == add.ConnectionID {
				seen := make(map[string]bool, len(merged[i].Scopes))
				for _, s := range merged[i].Scopes {
					seen[s.ScopeID] = true
				}
				for _, s := range add.Scopes {
					if !seen[s.ScopeID] {
						merged[i].Scopes = append(merged[i].Scopes, s)
						seen[s.ScopeID] = true
					}
				}
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, add)
		}
	}
	return merged
}

// failureReason extracts a user-safe reason from a per-repo error.
func failureReason(err error) string {
	return err.Error()
}
