package slackbot

import (
	"strings"
	"testing"

	"github.com/ftpr-metrics/devlake-bot/internal/devlake"
)

func TestCreateSuccessMessage(t *testing.T) {
	result := &devlake.ProvisionResult{
		Success:      true,
		Project:      "demo",
		PipelineID:   501,
		DashboardURL: "http://grafana.example",
		Added:        []string{"acme/widget"},
	}
	msg := createSuccessMessage(result, "Daily at midnight", []string{"acme/widget"}, nil)

	for _, want := range []string{"demo", "http://grafana.example", "501", "Daily at midnight", "acme/widget"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "⚠️") {
		t.Error("message should have no warning section without failures")
	}
}

func TestCreateSuccessMessageReportsFailures(t *testing.T) {
	result := &devlake.ProvisionResult{
		Success:      true,
		Project:      "demo",
		PipelineID:   501,
		DashboardURL: "http://grafana.example",
		Added:        []string{"acme/widget"},
		Failed: []devlake.RepoFailure{
			{Repo: "acme/hidden", Reason: "not found or no access"},
		},
	}
	msg := createSuccessMessage(result, "Daily at midnight", []string{"acme/widget", "acme/hidden"}, nil)

	if !strings.Contains(msg, "1 repository could not be added") {
		t.Errorf("message missing singular failure line:\n%s", msg)
	}
	if !strings.Contains(msg, "acme/hidden (not found or no access)") {
		t.Errorf("message missing the failed repo and reason:\n%s", msg)
	}
}

func TestAddReposMessage(t *testing.T) {
	tests := []struct {
		name   string
		result devlake.AddReposResult
		want   []string
		absent []string
	}{
		{
			name: "all added and linked",
			result: devlake.AddReposResult{
				Project: "demo",
				Added:   []string{"acme/api", "acme/web"},
				Linked:  true,
			},
			want:   []string{"Successfully added 2 repos", "demo", "acme/api", "acme/web"},
			absent: []string{"Failed", "could not be linked"},
		},
		{
			name: "mixed outcome",
			result: devlake.AddReposResult{
				Project: "demo",
				Added:   []string{"acme/api"},
				Failed:  []devlake.RepoFailure{{Repo: "acme/bad", Reason: "not found"}},
				Linked:  true,
			},
			want: []string{"Successfully added 1 repo", "Failed to add 1 repo", "acme/bad (not found)", "Common reasons"},
		},
		{
			name: "added but not linked",
			result: devlake.AddReposResult{
				Project:   "demo",
				Added:     []string{"acme/api"},
				LinkError: "blueprint missing",
			},
			want: []string{"could not be linked"},
		},
		{
			name:   "nothing processed",
			result: devlake.AddReposResult{Project: "demo"},
			want:   []string{"No repos were processed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := addReposMessage(&tt.result)
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message missing %q:\n%s", want, msg)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(msg, absent) {
					t.Errorf("message should not contain %q:\n%s", absent, msg)
				}
			}
		})
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	msg := helpText("http://grafana.example")
	for _, cmd := range []string{
		"/devlake-create-project", "/devlake-add-repos", "/devlake-requirements",
		"/devlake-list-projects", "/devlake-list-all", "/devlake-help",
	} {
		if !strings.Contains(msg, cmd) {
			t.Errorf("help text missing %s", cmd)
		}
	}
	if !strings.Contains(msg, "http://grafana.example") {
		t.Error("help text missing the dashboard URL")
	}
}

func TestAllProjectsMessage(t *testing.T) {
	if msg := allProjectsMessage(nil); msg != "No projects found." {
		t.Errorf("empty list message = %q", msg)
	}
	msg := allProjectsMessage([]devlake.Project{{Name: "a"}, {Name: "b"}})
	for _, want := range []string{"2 total", "a", "b"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
