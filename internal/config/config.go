package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/record"
)

// Config represents the supervisa configuration
type Config struct {
	Records    string            `mapstructure:"records"`
	Patterns   []string          `mapstructure:"patterns"`
	Format     string            `mapstructure:"format"`
	Output     string            `mapstructure:"output"`
	FailOn     string            `mapstructure:"failOn"`
	Quiet      bool              `mapstructure:"quiet"`
	Verbose    bool              `mapstructure:"verbose"`
	Baseline   string            `mapstructure:"baseline"`
	Timezone   string            `mapstructure:"timezone"`
	Filter     metrics.Filter    `mapstructure:"filter"`
	Thresholds alerts.Thresholds `mapstructure:"thresholds"`
	Store      StoreConfig       `mapstructure:"store"`
	Dynamo     DynamoConfig      `mapstructure:"dynamo"`
	Slack      SlackConfig       `mapstructure:"slack"`
	Watch      WatchConfig       `mapstructure:"watch"`
}

// StoreConfig locates the local draft database
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DynamoConfig points at the remote record table
type DynamoConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// SlackConfig configures alert notifications. A webhook URL takes
// precedence over a bot token.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhookURL"`
	Token      string `mapstructure:"token"`
	Channel    string `mapstructure:"channel"`
	MaxAlerts  int    `mapstructure:"maxAlerts"`
}

// Enabled reports whether any Slack destination is configured.
func (s SlackConfig) Enabled() bool {
	return s.WebhookURL != "" || (s.Token != "" && s.Channel != "")
}

// WatchConfig configures the scheduled refresh
type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// Location returns the configured time zone, or local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig loads configuration from various sources
func LoadConfig(recordsPath string) (*Config, error) {
	homeDir, _ := os.UserHomeDir()
	viper.SetDefault("records", ".")
	viper.SetDefault("patterns", record.DefaultPatterns)
	viper.SetDefault("format", "console")
	viper.SetDefault("failOn", "none")
	viper.SetDefault("quiet", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("baseline", ".supervisabaseline.json")
	viper.SetDefault("store.path", filepath.Join(homeDir, ".supervisa", "drafts.db"))
	viper.SetDefault("dynamo.table", "supervision-visits")
	viper.SetDefault("dynamo.region", "us-east-1")
	viper.SetDefault("dynamo.endpoint", "")
	viper.SetDefault("slack.webhookURL", "")
	viper.SetDefault("slack.token", "")
	viper.SetDefault("slack.channel", "")
	viper.SetDefault("slack.maxAlerts", 20)
	viper.SetDefault("watch.schedule", "0 7 * * 1-5")
	setThresholdDefaults(alerts.DefaultThresholds())

	// Config file locations
	configPaths := []string{".supervisarc.json", ".supervisarc.yaml", ".supervisarc.yml"}
	for _, path := range configPaths {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err == nil {
			break
		}
	}

	// Environment variables
	viper.SetEnvPrefix("SUPERVISA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if recordsPath != "" {
		config.Records = recordsPath
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setThresholdDefaults(t alerts.Thresholds) {
	defaults := map[string]int{
		"contractorWeeklyCritical":   t.ContractorWeeklyCritical,
		"componentWeeklyTrigger":     t.ComponentWeeklyTrigger,
		"componentWeeklyCritical":    t.ComponentWeeklyCritical,
		"componentMonthlyTrigger":    t.ComponentMonthlyTrigger,
		"componentMonthlyCritical":   t.ComponentMonthlyCritical,
		"attendanceWarningBelow":     t.AttendanceWarningBelow,
		"attendanceCriticalBelow":    t.AttendanceCriticalBelow,
		"siteDropTrigger":            t.SiteDropTrigger,
		"siteDropCritical":           t.SiteDropCritical,
		"lowComplianceWarningBelow":  t.LowComplianceWarningBelow,
		"lowComplianceCriticalBelow": t.LowComplianceCriticalBelow,
		"recentDays":                 t.RecentDays,
		"recentLimit":                t.RecentLimit,
		"visitDropCriticalPercent":   t.VisitDropCriticalPercent,
	}
	for key, value := range defaults {
		viper.SetDefault("thresholds."+key, value)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Format != "console" && config.Format != "json" && config.Format != "markdown" {
		return fmt.Errorf("invalid format: %s. Must be 'console', 'json', or 'markdown'", config.Format)
	}

	if config.FailOn != "none" && config.FailOn != "warning" && config.FailOn != "critical" {
		return fmt.Errorf("invalid fail-on level: %s. Must be 'none', 'warning', or 'critical'", config.FailOn)
	}

	if len(config.Patterns) == 0 {
		return fmt.Errorf("at least one record pattern is required")
	}

	if config.Timezone != "" {
		if _, err := time.LoadLocation(config.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
		}
	}

	if config.Filter.SpaceType != "" {
		if _, ok := catalog.ParseSpaceType(config.Filter.SpaceType); !ok {
			return fmt.Errorf("invalid space type filter: %s", config.Filter.SpaceType)
		}
	}
	for _, d := range []string{config.Filter.DateFrom, config.Filter.DateTo} {
		if d == "" {
			continue
		}
		if _, ok := record.ParseDate(d); !ok {
			return fmt.Errorf("invalid filter date: %s", d)
		}
	}

	if err := validateThresholds(config.Thresholds); err != nil {
		return err
	}

	if config.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(config.Watch.Schedule); err != nil {
			return fmt.Errorf("invalid watch schedule %q: %w", config.Watch.Schedule, err)
		}
	}

	if config.Slack.Token != "" && config.Slack.Channel == "" {
		return fmt.Errorf("slack channel is required when a bot token is set")
	}

	return nil
}

func validateThresholds(t alerts.Thresholds) error {
	pairs := []struct {
		name             string
		trigger, critical int
	}{
		{"componentWeekly", t.ComponentWeeklyTrigger, t.ComponentWeeklyCritical},
		{"componentMonthly", t.ComponentMonthlyTrigger, t.ComponentMonthlyCritical},
		{"siteDrop", t.SiteDropTrigger, t.SiteDropCritical},
	}
	for _, p := range pairs {
		if p.trigger < 0 || p.critical < p.trigger {
			return fmt.Errorf("threshold %s: critical (%d) must be at least the trigger (%d)", p.name, p.critical, p.trigger)
		}
	}
	if t.AttendanceCriticalBelow > t.AttendanceWarningBelow {
		return fmt.Errorf("attendance critical threshold (%d) exceeds the warning threshold (%d)", t.AttendanceCriticalBelow, t.AttendanceWarningBelow)
	}
	if t.LowComplianceCriticalBelow > t.LowComplianceWarningBelow {
		return fmt.Errorf("compliance critical threshold (%d) exceeds the warning threshold (%d)", t.LowComplianceCriticalBelow, t.LowComplianceWarningBelow)
	}
	if t.RecentDays < 1 {
		return fmt.Errorf("recentDays must be at least 1")
	}
	return nil
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
