package devlake

import "encoding/json"

// Plugin names for the two supported hosting platforms.
const (
	PluginGitHub = "github"
	PluginGitLab = "gitlab"
)

// Connection represents a DevLake plugin connection: a named
// credential+endpoint binding held by the platform.
type Connection struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
}

// ConnectionCreateRequest is the payload for creating a connection. The
// token appears here once and is never retained or logged.
type ConnectionCreateRequest struct {
	Name          string `json:"name"`
	Endpoint      string `json:"endpoint"`
	AuthMethod    string `json:"authMethod"`
	Token         string `json:"token"`
	EnableGraphql bool   `json:"enableGraphql,omitempty"`
}

// ScopeConfig is a collection-policy object attached to a connection.
type ScopeConfig struct {
	ID                int      `json:"id,omitempty"`
	ConnectionID      int      `json:"connectionId"`
	Name              string   `json:"name"`
	Entities          []string `json:"entities"`
	EnvNamePattern    string   `json:"envNamePattern"`
	DeploymentPattern string   `json:"deploymentPattern"`
	ProductionPattern string   `json:"productionPattern"`
}

// RemoteScopesPage is one page of the remote scope browser
// (GET /plugins/{plugin}/connections/{id}/remote-scopes).
type RemoteScopesPage struct {
	Children      []RemoteScopeChild `json:"children"`
	NextPageToken string             `json:"nextPageToken"`
}

// RemoteScopeChild is one entry in the remote scope browser: either a
// "group" (owner/org) or a "scope" (repository/project). Data carries the
// plugin-specific repository payload.
type RemoteScopeChild struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	FullName string          `json:"fullName"`
	Data     json.RawMessage `json:"data"`
}

// GitHubRepo is a GitHub repository in DevLake's scope shape. Field names
// match the scope payload exactly (note the HTMLUrl casing).
type GitHubRepo struct {
	GithubID      int    `json:"githubId"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	HTMLURL       string `json:"HTMLUrl"`
	Description   string `json:"description"`
	OwnerID       int    `json:"ownerId"`
	CloneURL      string `json:"cloneUrl"`
	CreatedDate   string `json:"createdDate"`
	UpdatedDate   string `json:"updatedDate"`
	Language      string `json:"language,omitempty"`
	ScopeConfigID int    `json:"scopeConfigId,omitempty"`
}

// GitLabProject is a GitLab project in DevLake's scope shape.
type GitLabProject struct {
	GitlabID          int    `json:"gitlabId"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"pathWithNamespace"`
	Description       string `json:"description"`
	DefaultBranch     string `json:"defaultBranch"`
	WebURL            string `json:"webUrl"`
	Visibility        string `json:"visibility"`
	HTTPURLToRepo     string `json:"httpUrlToRepo"`
	ScopeConfigID     int    `json:"scopeConfigId,omitempty"`
}

// ScopeBatchRequest is the payload for PUT /scopes (batch upsert).
type ScopeBatchRequest struct {
	Data []any `json:"data"`
}

// scopeEnvelope is one entry of a PUT /scopes response. Depending on the
// DevLake version the scope payload is either nested under "scope" or flat.
type scopeEnvelope struct {
	Scope    json.RawMessage `json:"scope"`
	GithubID int             `json:"githubId"`
	GitlabID int             `json:"gitlabId"`
}

// repoID extracts the platform-native numeric id from an envelope,
// preferring the nested scope object.
func (e *scopeEnvelope) repoID() int {
	if len(e.Scope) > 0 {
		var inner struct {
			GithubID int `json:"githubId"`
			GitlabID int `json:"gitlabId"`
		}
		if err := json.Unmarshal(e.Scope, &inner); err == nil {
			if inner.GithubID != 0 {
				return inner.GithubID
			}
			if inner.GitlabID != 0 {
				return inner.GitlabID
			}
		}
	}
	if e.GithubID != 0 {
		return e.GithubID
	}
	return e.GitlabID
}

// Project represents a DevLake project: the user-visible unit of analytics
// aggregation. The name is globally unique and doubles as the identifier.
type Project struct {
	Name      string          `json:"name"`
	Enable    bool            `json:"enable,omitempty"`
	Metrics   []ProjectMetric `json:"metrics,omitempty"`
	Blueprint *Blueprint      `json:"blueprint,omitempty"`
}

// ProjectMetric enables a metric plugin for a project.
type ProjectMetric struct {
	PluginName string `json:"pluginName"`
	Enable     bool   `json:"enable"`
}

// ProjectCreateRequest is the payload for POST /projects.
type ProjectCreateRequest struct {
	Name      string          `json:"name"`
	Enable    bool            `json:"enable"`
	Metrics   []ProjectMetric `json:"metrics"`
	Blueprint *BlueprintSpec  `json:"blueprint"`
}

// BlueprintSpec is the blueprint definition embedded at project creation.
type BlueprintSpec struct {
	Name           string             `json:"name"`
	ProjectName    string             `json:"projectName"`
	Mode           string             `json:"mode"`
	Enable         bool               `json:"enable"`
	CronConfig     string             `json:"cronConfig"`
	IsManual       bool               `json:"isManual"`
	SkipOnFail     bool               `json:"skipOnFail"`
	TimeAfter      string             `json:"timeAfter,omitempty"`
	SkipCollectors bool               `json:"skipCollectors"`
	FullSync       bool               `json:"fullSync"`
	Settings       *BlueprintSettings `json:"settings,omitempty"`
	Plan           [][]PlanStage      `json:"plan,omitempty"`
}

// BlueprintSettings embeds resolved scope references at creation time,
// grouped by (plugin, connection).
type BlueprintSettings struct {
	Version     string               `json:"version"`
	Connections []SettingsConnection `json:"connections"`
}

// SettingsConnection is one connection entry of blueprint settings. Scope
// ids here are the composite form "plugin:Model:connId:repoId", unlike the
// bare numeric ids a blueprint patch uses.
type SettingsConnection struct {
	Plugin       string          `json:"plugin"`
	ConnectionID int             `json:"connectionId"`
	Scopes       []SettingsScope `json:"scopes"`
}

// SettingsScope identifies a scope in blueprint settings by composite id.
type SettingsScope struct {
	ScopeID string `json:"scopeId"`
}

// ScopeRef is the orchestrator's in-memory record of one successfully added
// scope, carried between the add loop and the blueprint writes.
type ScopeRef struct {
	Plugin       string
	ConnectionID int
	ScopeID      string
}

// PlanStage is one stage of a legacy explicit blueprint plan.
type PlanStage struct {
	Plugin  string      `json:"plugin"`
	Options PlanOptions `json:"options"`
}

// PlanOptions selects the connection and repo a plan stage collects.
type PlanOptions struct {
	ConnectionID int `json:"connectionId"`
	GithubID     int `json:"githubId"`
}

// Blueprint is the schedule+plan object embedded in a project, as returned
// by the API.
type Blueprint struct {
	ID          int                   `json:"id"`
	Name        string                `json:"name,omitempty"`
	Enable      bool                  `json:"enable,omitempty"`
	CronConfig  string                `json:"cronConfig,omitempty"`
	TimeAfter   string                `json:"timeAfter,omitempty"`
	Connections []BlueprintConnection `json:"connections,omitempty"`
}

// BlueprintPatch is the payload for PATCH /blueprints/{id}. Only set fields
// are sent.
type BlueprintPatch struct {
	CronConfig     string                `json:"cronConfig,omitempty"`
	TimeAfter      string                `json:"timeAfter,omitempty"`
	Connections    []BlueprintConnection `json:"connections,omitempty"`
	SkipCollectors *bool                 `json:"skipCollectors,omitempty"`
	FullSync       *bool                 `json:"fullSync,omitempty"`
}

// BlueprintConnection associates a plugin connection with scopes in a
// blueprint.
type BlueprintConnection struct {
	PluginName   string           `json:"pluginName"`
	ConnectionID int              `json:"connectionId"`
	Scopes       []BlueprintScope `json:"scopes"`
}

// BlueprintScope identifies a single scope within a blueprint connection by
// its bare numeric id.
type BlueprintScope struct {
	ScopeID string `json:"scopeId"`
}

// Pipeline is one triggered execution instance of a blueprint.
type Pipeline struct {
	ID            int    `json:"id"`
	Status        string `json:"status"`
	FinishedTasks int    `json:"finishedTasks"`
	TotalTasks    int    `json:"totalTasks"`
}

// ProjectList is the paginated response of GET /projects.
type ProjectList struct {
	Projects []Project `json:"projects"`
	Count    int       `json:"count"`
}
