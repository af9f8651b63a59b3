package devlake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GitHub-side remote-scope search parameters. Owners are matched on a
// single 50-entry search page; repos are paged 200 at a time up to 5 pages
// (1000 entries) before falling back to the public API.
const (
	githubOwnerPageSize = 50
	githubRepoPageSize  = 200
	githubMaxRepoPages  = 5

	gitlabGroupPageSize   = 50
	gitlabProjectPageSize = 100
)

// splitFullName validates and splits an "owner/repo" identifier.
func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &InvalidIdentifierError{Input: fullName}
	}
	return parts[0], parts[1], nil
}

// ResolveGitHubRepo maps an "owner/repo" string to its platform-native id
// and metadata via the connection's remote scope browser. DevLake's own
// indexing can lag or paginate inconsistently, so a miss falls back to the
// GitHub public API before giving up.
func (c *Client) ResolveGitHubRepo(connID int, fullName string) (*GitHubRepo, error) {
	owner, _, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	// Search for the owner/organization first.
	page, err := c.remoteScopes(PluginGitHub, connID, owner, "", 1, githubOwnerPageSize)
	if err != nil {
		return nil, err
	}
	ownerID := ""
	for _, child := range page.Children {
		if child.Name == owner && child.Type == "group" {
			ownerID = child.ID
			break
		}
	}

	if ownerID == "" {
		c.log.Warn().Str("owner", owner).Msg("owner not found via DevLake API, trying GitHub public API")
		return c.githubPublicLookup(fullName)
	}

	// Page through the owner's repos looking for an exact full-name match.
	for p := 1; p <= githubMaxRepoPages; p++ {
		page, err := c.remoteScopes(PluginGitHub, connID, "", ownerID, p, githubRepoPageSize)
		if err != nil {
			return nil, err
		}
		for _, child := range page.Children {
			if child.Type == "scope" && child.FullName == fullName {
				var repo GitHubRepo
				if err := json.Unmarshal(child.Data, &repo); err != nil {
					return nil, &RemoteError{Method: http.MethodGet, Endpoint: "remote-scopes", Message: "decode scope data: " + err.Error()}
				}
				return &repo, nil
			}
		}
		if page.NextPageToken == "" {
			break
		}
	}

	c.log.Warn().Str("repo", fullName).Msg("repository not found via DevLake API, trying GitHub public API")
	return c.githubPublicLookup(fullName)
}

// githubPublicLookup fetches repo metadata from GitHub's public API,
// unauthenticated, and translates it into the DevLake scope shape.
func (c *Client) githubPublicLookup(fullName string) (*GitHubRepo, error) {
	endpoint := fmt.Sprintf("%s/repos/%s", c.githubAPI, fullName)
	resp, err := c.publicHTTP.Get(endpoint)
	if err != nil {
		return nil, &RemoteError{Method: http.MethodGet, Endpoint: "/repos/" + fullName, Message: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{
			Subject: fmt.Sprintf("repository %q", fullName),
			Reason:  "please verify the repo name is correct",
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{
			Method:   http.MethodGet,
			Endpoint: "/repos/" + fullName,
			Status:   resp.StatusCode,
			Message:  "failed to fetch repo details from GitHub API",
		}
	}

	var gh struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		FullName    string `json:"full_name"`
		HTMLURL     string `json:"html_url"`
		Description string `json:"description"`
		CloneURL    string `json:"clone_url"`
		CreatedAt   string `json:"created_at"`
		UpdatedAt   string `json:"updated_at"`
		Language    string `json:"language"`
		Owner       struct {
			ID int `json:"id"`
		} `json:"owner"`
	}
	if err := json.Unmarshal(body, &gh); err != nil {
		return nil, &RemoteError{Method: http.MethodGet, Endpoint: "/repos/" + fullName, Message: "decode response: " + err.Error()}
	}

	return &GitHubRepo{
		GithubID:    gh.ID,
		Name:        gh.Name,
		FullName:    gh.FullName,
		HTMLURL:     gh.HTMLURL,
		Description: gh.Description,
		OwnerID:     gh.Owner.ID,
		CloneURL:    gh.CloneURL,
		CreatedDate: gh.CreatedAt,
		UpdatedDate: gh.UpdatedAt,
		Language:    gh.Language,
	}, nil
}

// ResolveGitLabProject maps a "group/project" string to its platform-native
// id and metadata. There is no public fallback for the internal GitLab, so
// a miss yields a descriptive NotFoundError instead.
func (c *Client) ResolveGitLabProject(connID int, fullName string) (*GitLabProject, error) {
	group, _, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	page, err := c.remoteScopes(PluginGitLab, connID, group, "", 1, gitlabGroupPageSize)
	if err != nil {
		return nil, err
	}
	groupID := ""
	for _, child := range page.Children {
		if child.Name == group && child.Type == "group" {
			groupID = child.ID
			break
		}
	}
	if groupID == "" {
		return nil, &NotFoundError{Subject: fmt.Sprintf("group %q", group)}
	}

	page, err = c.remoteScopes(PluginGitLab, connID, "", groupID, 1, gitlabProjectPageSize)
	if err != nil {
		return nil, err
	}
	for _, child := range page.Children {
		if child.Type == "scope" && child.FullName == fullName {
			var project GitLabProject
			if err := json.Unmarshal(child.Data, &project); err != nil {
				return nil, &RemoteError{Method: http.MethodGet, Endpoint: "remote-scopes", Message: "decode scope data: " + err.Error()}
			}
			return &project, nil
		}
	}

	return nil, &NotFoundError{
		Subject: fmt.Sprintf("project %q in group %q", fullName, group),
		Reason: "this could mean: (1) the GitLab PAT token configured in this connection " +
			"doesn't have access to the project, (2) the project is private and requires " +
			"additional permissions, or (3) the project doesn't exist. Please verify the " +
			"project path and that the PAT token has access to it",
	}
}
