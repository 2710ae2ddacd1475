// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/devfactory/reviewmaker/pkg/models"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Jira    JiraConfig
	GitHub  GitHubConfig
	Google  GoogleConfig
	Review  ReviewConfig
	History HistoryConfig
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// GoogleConfig holds Google Drive/Sheets specific configuration.
type GoogleConfig struct {
	// CredentialsFile is the path to the service account credentials JSON.
	CredentialsFile string

	// QbTemplateID is the document id of the QB checklist template.
	QbTemplateID string

	// QbParentFolderID is the Drive folder under which per-repository
	// QB folders live.
	QbParentFolderID string
}

// ReviewConfig holds the review workflow policy settings.
type ReviewConfig struct {
	// ApprovePrAction is "approve" or "comment"; any other value leaves
	// the PR review to a human.
	ApprovePrAction string

	// RejectPr controls whether a rejection also submits a
	// change-request review on the PR.
	RejectPr bool

	// UseLocalDate selects local time instead of UTC for timestamps.
	UseLocalDate bool

	// SheetPages is the checklist page schema of the QB template.
	SheetPages []models.SheetPage
}

// HistoryConfig identifies the shared rejection-history spreadsheet.
type HistoryConfig struct {
	DocumentID  string
	SheetName   string
	SystemSheet string
}

// LoadConfig initializes and loads configuration from environment
// variables and the settings file. cfgFile overrides the default
// settings file location (~/.config/reviewmaker/config.yaml) when
// non-empty.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Credentials come from the environment, never from the settings file
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("google.credentials_file", "GOOGLE_CREDENTIALS_FILE")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".config", "reviewmaker"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// Workflow settings are required; only a missing default file is
		// tolerated so that parse errors surface early.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	var pages []models.SheetPage
	if err := v.UnmarshalKey("review.sheet_pages", &pages); err != nil {
		return nil, fmt.Errorf("invalid sheet_pages configuration: %w", err)
	}

	config := &Config{
		Jira: JiraConfig{
			URL:      strings.TrimSuffix(v.GetString("jira.url"), "/"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Google: GoogleConfig{
			CredentialsFile:  v.GetString("google.credentials_file"),
			QbTemplateID:     v.GetString("google.qb_template_id"),
			QbParentFolderID: v.GetString("google.qb_parent_folder_id"),
		},
		Review: ReviewConfig{
			ApprovePrAction: v.GetString("review.approve_pr_action"),
			RejectPr:        v.GetBool("review.reject_pr"),
			UseLocalDate:    v.GetBool("review.use_local_date"),
			SheetPages:      pages,
		},
		History: HistoryConfig{
			DocumentID:  v.GetString("history.document_id"),
			SheetName:   v.GetString("history.sheet_name"),
			SystemSheet: v.GetString("history.system_sheet"),
		},
	}

	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures that all required configuration values are provided.
func validateConfig(config *Config) error {
	var missing []string

	if config.Jira.URL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missing = append(missing, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missing = append(missing, "JIRA_TOKEN")
	}
	if config.GitHub.Token == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if config.Google.CredentialsFile == "" {
		missing = append(missing, "GOOGLE_CREDENTIALS_FILE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	var incomplete []string
	if config.Google.QbTemplateID == "" {
		incomplete = append(incomplete, "google.qb_template_id")
	}
	if config.Google.QbParentFolderID == "" {
		incomplete = append(incomplete, "google.qb_parent_folder_id")
	}
	if config.History.DocumentID == "" {
		incomplete = append(incomplete, "history.document_id")
	}
	if config.History.SheetName == "" {
		incomplete = append(incomplete, "history.sheet_name")
	}
	if config.History.SystemSheet == "" {
		incomplete = append(incomplete, "history.system_sheet")
	}
	if len(config.Review.SheetPages) == 0 {
		incomplete = append(incomplete, "review.sheet_pages")
	}
	if len(incomplete) > 0 {
		return fmt.Errorf("missing required settings: %v", incomplete)
	}

	return nil
}
