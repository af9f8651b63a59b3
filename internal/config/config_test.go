package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so ambient CI settings cannot
// leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEVLAKE_URL", "DEVLAKE_API_TOKEN", "DEVLAKE_DASHBOARD_URL",
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "GITHUB_ENDPOINT", "GITLAB_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devlake-bot.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[devlake]
url = "http://devlake.internal:8080"
api_token = "file-token"
dashboard_url = "http://grafana.internal"
timeout_seconds = 60

[slack]
bot_token = "xoxb-file"
app_token = "xapp-file"

[gitlab]
endpoint = "https://gitlab.internal/api/v4/"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.DevLakeURL != "http://devlake.internal:8080" {
		t.Errorf("DevLakeURL = %q", cfg.DevLakeURL)
	}
	if cfg.DevLakeAPIToken != "file-token" {
		t.Errorf("DevLakeAPIToken = %q", cfg.DevLakeAPIToken)
	}
	if cfg.DashboardURL != "http://grafana.internal" {
		t.Errorf("DashboardURL = %q", cfg.DashboardURL)
	}
	if cfg.SlackBotToken != "xoxb-file" || cfg.SlackAppToken != "xapp-file" {
		t.Errorf("slack tokens = (%q, %q)", cfg.SlackBotToken, cfg.SlackAppToken)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Errorf("HTTPTimeout = %v, want 60s", cfg.HTTPTimeout)
	}
	if cfg.GitLabEndpoint != "https://gitlab.internal/api/v4/" {
		t.Errorf("GitLabEndpoint = %q", cfg.GitLabEndpoint)
	}
	// Unset in file: falls back to the public default.
	if cfg.GitHubEndpoint != "https://api.github.com/" {
		t.Errorf("GitHubEndpoint = %q, want public default", cfg.GitHubEndpoint)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[devlake]
url = "http://from-file:8080"
api_token = "file-token"
`)
	t.Setenv("DEVLAKE_URL", "http://from-env:8080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.DevLakeURL != "http://from-env:8080" {
		t.Errorf("DevLakeURL = %q, env should win over file", cfg.DevLakeURL)
	}
	if cfg.DevLakeAPIToken != "file-token" {
		t.Errorf("DevLakeAPIToken = %q, file value should survive", cfg.DevLakeAPIToken)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.GitHubEndpoint != "https://api.github.com/" {
		t.Errorf("GitHubEndpoint = %q", cfg.GitHubEndpoint)
	}
	if cfg.GitLabEndpoint != "https://gitlab.com/api/v4/" {
		t.Errorf("GitLabEndpoint = %q", cfg.GitLabEndpoint)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err != nil {
		t.Fatalf("Load() = %v, missing file should be tolerated", err)
	}
}

func TestLoadDashboardFallsBackToDevLakeURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEVLAKE_URL", "http://devlake:8080")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.DashboardURL != "http://devlake:8080" {
		t.Errorf("DashboardURL = %q, want the DevLake URL", cfg.DashboardURL)
	}
}

func TestValidateBot(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "complete",
			cfg:  Config{DevLakeURL: "http://x", SlackBotToken: "xoxb", SlackAppToken: "xapp"},
		},
		{
			name:    "missing devlake url",
			cfg:     Config{SlackBotToken: "xoxb", SlackAppToken: "xapp"},
			wantErr: "DEVLAKE_URL",
		},
		{
			name:    "missing bot token",
			cfg:     Config{DevLakeURL: "http://x", SlackAppToken: "xapp"},
			wantErr: "SLACK_BOT_TOKEN",
		},
		{
			name:    "missing app token",
			cfg:     Config{DevLakeURL: "http://x", SlackBotToken: "xoxb"},
			wantErr: "SLACK_APP_TOKEN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateBot()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateBot() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateBot() = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
