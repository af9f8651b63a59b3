// Package devlake implements the DevLake provisioning core: a typed HTTP
// client for the DevLake REST API, a repository identity resolver, and the
// orchestrator that wires connections, scopes, projects, and blueprints
// together.
package devlake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ftpr-metrics/devlake-bot/internal/config"
)

const maxErrorBody = 512

// Client wraps HTTP calls to the DevLake backend API. Every request is
// authenticated from the held API token; on a 401 the request is retried
// exactly once. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	publicHTTP *http.Client
	githubAPI  string
	log        zerolog.Logger
}

// NewClient creates a Client from the startup configuration.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.DevLakeURL, "/"),
		apiToken:   cfg.DevLakeAPIToken,
		httpClient: &http.Client{Timeout: timeout},
		publicHTTP: &http.Client{Timeout: 10 * time.Second},
		githubAPI:  "https://api.github.com",
		log:        log,
	}
}

// BaseURL returns the configured DevLake base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do performs one API call. Non-2xx responses, transport errors, and
// malformed bodies all surface as *RemoteError carrying method, endpoint,
// and the remote message, never the request payload.
func (c *Client) do(method, endpoint string, query url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &RemoteError{Method: method, Endpoint: endpoint, Message: "encode request: " + err.Error()}
		}
		body = b
	}

	resp, respBody, err := c.send(method, endpoint, query, body)
	if err != nil {
		return &RemoteError{Method: method, Endpoint: endpoint, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// send re-authenticates from the long-lived API token on every
		// attempt, so the refresh is a plain retry; a second 401 is a hard
		// failure. The Client is used concurrently, so no state is mutated.
		c.log.Warn().Str("endpoint", endpoint).Msg("session expired (401), refreshing session and retrying")
		resp, respBody, err = c.send(method, endpoint, query, body)
		if err != nil {
			return &RemoteError{Method: method, Endpoint: endpoint, Message: err.Error()}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{
			Method:   method,
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  truncate(string(respBody), maxErrorBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &RemoteError{Method: method, Endpoint: endpoint, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}

// send issues a single request attempt with the current session headers.
func (c *Client) send(method, endpoint string, query url.Values, body []byte) (*http.Response, []byte, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp, respBody, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// Ping checks that the DevLake backend is reachable.
func (c *Client) Ping() error {
	return c.do(http.MethodGet, "/ping", nil, nil, nil)
}

// CreateGitHubConnection creates a GitHub connection. The token is sent in
// this call's body only and is not retained.
func (c *Client) CreateGitHubConnection(name, token, endpoint string) (*Connection, error) {
	req := &ConnectionCreateRequest{
		Name:          name,
		Endpoint:      endpoint,
		AuthMethod:    "AccessToken",
		Token:         token,
		EnableGraphql: true,
	}
	c.log.Info().Str("name", name).Msg("creating GitHub connection")
	var conn Connection
	if err := c.do(http.MethodPost, "/api/plugins/github/connections", nil, req, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// CreateGitLabConnection creates a GitLab connection. The token is sent in
// this call's body only and is not retained.
func (c *Client) CreateGitLabConnection(name, token, endpoint string) (*Connection, error) {
	req := &ConnectionCreateRequest{
		Name:       name,
		Endpoint:   endpoint,
		AuthMethod: "AccessToken",
		Token:      token,
	}
	c.log.Info().Str("name", name).Msg("creating GitLab connection")
	var conn Connection
	if err := c.do(http.MethodPost, "/api/plugins/gitlab/connections", nil, req, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListConnections returns all connections for a plugin.
func (c *Client) ListConnections(plugin string) ([]Connection, error) {
	var conns []Connection
	err := c.do(http.MethodGet, fmt.Sprintf("/api/plugins/%s/connections", plugin), nil, nil, &conns)
	if err != nil {
		return nil, err
	}
	return conns, nil
}

// CreateScopeConfig creates a CODE+CICD scope config for a connection.
func (c *Client) CreateScopeConfig(plugin string, connID int, name string) (*ScopeConfig, error) {
	cfg := &ScopeConfig{
		ConnectionID:   connID,
		Name:           name,
		Entities:       []string{"CODE", "CICD"},
		EnvNamePattern: "(?i)prod(.*)",
	}
	c.log.Info().Str("plugin", plugin).Int("connectionId", connID).Msg("creating scope config")
	var created ScopeConfig
	endpoint := fmt.Sprintf("/api/plugins/%s/connections/%d/scope-configs", plugin, connID)
	if err := c.do(http.MethodPost, endpoint, nil, cfg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListScopeConfigs returns all scope configs for a connection.
func (c *Client) ListScopeConfigs(plugin string, connID int) ([]ScopeConfig, error) {
	var configs []ScopeConfig
	endpoint := fmt.Sprintf("/api/plugins/%s/connections/%d/scope-configs", plugin, connID)
	if err := c.do(http.MethodGet, endpoint, nil, nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// remoteScopes queries one page of the remote scope browser.
func (c *Client) remoteScopes(plugin string, connID int, search, groupID string, page, pageSize int) (*RemoteScopesPage, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if groupID != "" {
		q.Set("groupId", groupID)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var result RemoteScopesPage
	endpoint := fmt.Sprintf("/api/plugins/%s/connections/%d/remote-scopes", plugin, connID)
	if err := c.do(http.MethodGet, endpoint, q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// putScopes batch-upserts scopes for a connection and parses the response
// envelopes. An empty result is returned as-is: the caller decides whether
// that is a soft failure.
func (c *Client) putScopes(plugin string, connID int, data []any) ([]scopeEnvelope, error) {
	var raw json.RawMessage
	endpoint := fmt.Sprintf("/api/plugins/%s/connections/%d/scopes", plugin, connID)
	if err := c.do(http.MethodPut, endpoint, nil, &ScopeBatchRequest{Data: data}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var envelopes []scopeEnvelope
	if err := json.Unmarshal(raw, &envelopes); err == nil {
		return envelopes, nil
	}
	var single scopeEnvelope
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, &RemoteError{Method: http.MethodPut, Endpoint: endpoint, Message: "decode response: " + err.Error()}
	}
	return []scopeEnvelope{single}, nil
}

// CreateProject creates a new project with its embedded blueprint.
func (c *Client) CreateProject(req *ProjectCreateRequest) (*Project, error) {
	c.log.Info().Str("project", req.Name).Msg("creating project")
	var project Project
	if err := c.do(http.MethodPost, "/api/projects", nil, req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProject retrieves a project by name.
func (c *Client) GetProject(name string) (*Project, error) {
	var project Project
	if err := c.do(http.MethodGet, "/api/projects/"+url.PathEscape(name), nil, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns one page of projects. Pages are 1-based.
func (c *Client) ListProjects(page, pageSize int) (*ProjectList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	var list ProjectList
	if err := c.do(http.MethodGet, "/api/projects", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetBlueprint retrieves a blueprint by ID.
func (c *Client) GetBlueprint(id int) (*Blueprint, error) {
	var bp Blueprint
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/blueprints/%d", id), nil, nil, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

// PatchBlueprint partially updates a blueprint.
func (c *Client) PatchBlueprint(id int, patch *BlueprintPatch) (*Blueprint, error) {
	var bp Blueprint
	if err := c.do(http.MethodPatch, fmt.Sprintf("/api/blueprints/%d", id), nil, patch, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

// TriggerBlueprint triggers a blueprint to run and returns the pipeline.
func (c *Client) TriggerBlueprint(id int) (*Pipeline, error) {
	c.log.Info().Int("blueprintId", id).Msg("triggering blueprint")
	var pipeline Pipeline
	if err := c.do(http.MethodPost, fmt.Sprintf("/api/blueprints/%d/trigger", id), nil, struct{}{}, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// GetPipeline retrieves a pipeline by ID.
func (c *Client) GetPipeline(id int) (*Pipeline, error) {
	var pipeline Pipeline
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/pipelines/%d", id), nil, nil, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}
