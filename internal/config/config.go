// Package config loads sync configuration from environment variables, with
// an optional YAML overlay for the sheet column mapping.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Jira (basic auth)
	JiraBaseURL  string `envconfig:"JIRA_BASE_URL"`
	JiraEmail    string `envconfig:"JIRA_EMAIL"`
	JiraAPIToken string `envconfig:"JIRA_API_TOKEN"`

	// Smartsheet
	SmartsheetToken string `envconfig:"SMARTSHEET_ACCESS_TOKEN"`
	SheetID         int64  `envconfig:"SHEET_ID"`

	// Sheet columns. Status/Start/End are optional: a missing column
	// disables that field for the run.
	JiraColumn     string `envconfig:"SS_JIRA_COL" default:"Jira"`
	ProgressColumn string `envconfig:"SS_PROGRESS_COL" default:"% Complete"`
	StatusColumn   string `envconfig:"SS_STATUS_COL" default:"Status"`
	StartColumn    string `envconfig:"SS_START_COL" default:"Start"`
	EndColumn      string `envconfig:"SS_END_COL" default:"End"`

	// Jira schedule fields: a field name ("Start date"), a built-in id
	// ("duedate"), or a customfield id ("customfield_10015").
	JiraStartField string `envconfig:"JIRA_START_FIELD" default:"Start date"`
	JiraEndField   string `envconfig:"JIRA_END_FIELD" default:"Due date"`

	// Behavior
	DryRun          bool `envconfig:"DRY_RUN" default:"false"`
	IncludeSubtasks bool `envconfig:"INCLUDE_SUBTASKS" default:"false"`
	ProtectProgress bool `envconfig:"PROTECT_PROGRESS" default:"true"`
	ProtectDates    bool `envconfig:"PROTECT_DATES" default:"true"`

	// Interval mode: 0 means one-shot.
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0"`
	MgmtListenAddr string        `envconfig:"MGMT_LISTEN_ADDR" default:":8090"`

	// Slack notifications (optional)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`

	// Optional YAML file overriding the column mapping.
	MappingFile string `envconfig:"SYNC_MAPPING_FILE"`
}

// Mapping is the YAML overlay for column titles and Jira field names.
// Empty values leave the environment-derived setting in place.
type Mapping struct {
	JiraColumn     string `yaml:"jira_column"`
	ProgressColumn string `yaml:"progress_column"`
	StatusColumn   string `yaml:"status_column"`
	StartColumn    string `yaml:"start_column"`
	EndColumn      string `yaml:"end_column"`
	JiraStartField string `yaml:"jira_start_field"`
	JiraEndField   string `yaml:"jira_end_field"`
}

// Load reads configuration from environment variables and, when
// SYNC_MAPPING_FILE is set, applies the YAML column-mapping overlay.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.MappingFile != "" {
		if err := cfg.applyMappingFile(cfg.MappingFile); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Validate enforces the settings without which a run cannot start.
func (c *Config) Validate() error {
	var missing []string
	if c.JiraBaseURL == "" {
		missing = append(missing, "JIRA_BASE_URL")
	}
	if c.JiraEmail == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.JiraAPIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if c.SmartsheetToken == "" {
		missing = append(missing, "SMARTSHEET_ACCESS_TOKEN")
	}
	if c.SheetID <= 0 {
		missing = append(missing, "SHEET_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlackEnabled returns true if Slack notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// IntervalMode returns true when the syncer should loop on a ticker.
func (c *Config) IntervalMode() bool {
	return c.SyncInterval > 0
}

func (c *Config) applyMappingFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading mapping file: %w", err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing mapping file %s: %w", path, err)
	}

	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	override(&c.JiraColumn, m.JiraColumn)
	override(&c.ProgressColumn, m.ProgressColumn)
	override(&c.StatusColumn, m.StatusColumn)
	override(&c.StartColumn, m.StartColumn)
	override(&c.EndColumn, m.EndColumn)
	override(&c.JiraStartField, m.JiraStartField)
	override(&c.JiraEndField, m.JiraEndField)
	return nil
}
