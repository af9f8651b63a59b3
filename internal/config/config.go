// Package config loads the bot's startup configuration from a TOML file
// with environment-variable overrides. The resulting Config is built once
// and passed by reference; nothing mutates it afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file checked when none is given.
const DefaultPath = "~/.config/devlake-bot.toml"

const (
	defaultGitHubEndpoint = "https://api.github.com/"
	defaultGitLabEndpoint = "https://gitlab.com/api/v4/"
	defaultTimeout        = 30 * time.Second
)

// Config holds everything the bot needs at startup.
type Config struct {
	DevLakeURL      string
	DevLakeAPIToken string
	DashboardURL    string

	SlackBotToken string
	SlackAppToken string

	GitHubEndpoint string
	GitLabEndpoint string

	HTTPTimeout time.Duration
}

// fileConfig mirrors the TOML file layout.
type fileConfig struct {
	DevLake struct {
		URL            string `toml:"url"`
		APIToken       string `toml:"api_token"`
		DashboardURL   string `toml:"dashboard_url"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
	} `toml:"devlake"`
	Slack struct {
		BotToken string `toml:"bot_token"`
		AppToken string `toml:"app_token"`
	} `toml:"slack"`
	GitHub struct {
		Endpoint string `toml:"endpoint"`
	} `toml:"github"`
	GitLab struct {
		Endpoint string `toml:"endpoint"`
	} `toml:"gitlab"`
}

// Load reads the config file at path (optional) and applies environment
// overrides. Environment variables always win over the file.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &fc); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		DevLakeURL:      fc.DevLake.URL,
		DevLakeAPIToken: fc.DevLake.APIToken,
		DashboardURL:    fc.DevLake.DashboardURL,
		SlackBotToken:   fc.Slack.BotToken,
		SlackAppToken:   fc.Slack.AppToken,
		GitHubEndpoint:  fc.GitHub.Endpoint,
		GitLabEndpoint:  fc.GitLab.Endpoint,
		HTTPTimeout:     defaultTimeout,
	}
	if fc.DevLake.TimeoutSeconds > 0 {
		cfg.HTTPTimeout = time.Duration(fc.DevLake.TimeoutSeconds) * time.Second
	}

	overrideFromEnv(&cfg.DevLakeURL, "DEVLAKE_URL")
	overrideFromEnv(&cfg.DevLakeAPIToken, "DEVLAKE_API_TOKEN")
	overrideFromEnv(&cfg.DashboardURL, "DEVLAKE_DASHBOARD_URL")
	overrideFromEnv(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	overrideFromEnv(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	overrideFromEnv(&cfg.GitHubEndpoint, "GITHUB_ENDPOINT")
	overrideFromEnv(&cfg.GitLabEndpoint, "GITLAB_ENDPOINT")

	if cfg.GitHubEndpoint == "" {
		cfg.GitHubEndpoint = defaultGitHubEndpoint
	}
	if cfg.GitLabEndpoint == "" {
		cfg.GitLabEndpoint = defaultGitLabEndpoint
	}
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = cfg.DevLakeURL
	}
	return cfg, nil
}

func overrideFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// ValidateBot checks the fields the Slack surface needs.
func (c *Config) ValidateBot() error {
	if c.DevLakeURL == "" {
		return fmt.Errorf("DEVLAKE_URL is required")
	}
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if c.SlackAppToken == "" {
		return fmt.Errorf("SLACK_APP_TOKEN is required")
	}
	return nil
}
