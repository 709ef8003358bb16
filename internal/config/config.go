package config

import (
	"fmt"
	"strings"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/affpress/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Auth       AuthConfig       `yaml:"auth"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Policy     PolicyConfig     `yaml:"policy"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
	Path     string `yaml:"path"` // sqlite file
}

type AuthConfig struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TOTPSecret string `yaml:"totp_secret"`
	SessionTTL string `yaml:"session_ttl"`
}

// SessionTTLDuration parses SessionTTL.
func (a AuthConfig) SessionTTLDuration() (time.Duration, error) {
	d, err := time.ParseDuration(a.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session ttl %q: %w", a.SessionTTL, err)
	}
	return d, nil
}

type GeneratorConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	Timeout      string `yaml:"timeout"`
	Fallback     *bool  `yaml:"fallback"`
	AffiliateTag string `yaml:"affiliate_tag"`
}

// FallbackEnabled reports whether the fallback template may stand in for a missing provider.
func (g GeneratorConfig) FallbackEnabled() bool {
	return g.Fallback == nil || *g.Fallback
}

const (
	PolicyModeStrict = "strict"
	PolicyModeDemo   = "demo"
)

type PolicyConfig struct {
	Mode             string   `yaml:"mode"`
	AffiliateDomains []string `yaml:"affiliate_domains"`
}

// DemoMode reports whether every non-empty body qualifies for publication.
func (p PolicyConfig) DemoMode() bool {
	return strings.EqualFold(p.Mode, PolicyModeDemo)
}

type PlatformConfig struct {
	Name       string  `yaml:"name"`
	Enabled    bool    `yaml:"enabled"`
	MinRevenue float64 `yaml:"min_revenue"`
	MaxRevenue float64 `yaml:"max_revenue"`
}

type PublisherConfig struct {
	Platforms []PlatformConfig `yaml:"platforms"`
}

type SchedulerConfig struct {
	Interval  string   `yaml:"interval"`
	AutoStart *bool    `yaml:"auto_start"`
	Topics    []string `yaml:"topics"`
}

// AutoStartEnabled reports whether the scheduler starts with the process.
func (s SchedulerConfig) AutoStartEnabled() bool {
	return s.AutoStart == nil || *s.AutoStart
}

// IntervalDuration parses Interval.
func (s SchedulerConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduler interval %q: %w", s.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scheduler interval must be positive, got %s", s.Interval)
	}
	return d, nil
}

type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

type MonitoringConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

var (
	DefaultAffiliateDomains = []string{"amazon.com", "clickbank.net", "shareasale.com"}
	DefaultTopics           = []string{
		"Best headphones of the year",
		"Productivity software for small businesses",
		"Cheap phone accessories",
	}
)

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if _, err := cfg.Scheduler.IntervalDuration(); err != nil {
		return nil, err
	}
	if _, err := cfg.Auth.SessionTTLDuration(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills zero values with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/affpress.db"
	}
	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "admin"
	}
	if cfg.Auth.SessionTTL == "" {
		cfg.Auth.SessionTTL = "12h"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 700
	}
	if cfg.Generator.Timeout == "" {
		cfg.Generator.Timeout = "120s"
	}
	if cfg.Generator.AffiliateTag == "" {
		cfg.Generator.AffiliateTag = "demo-tag"
	}
	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = PolicyModeStrict
	}
	if len(cfg.Policy.AffiliateDomains) == 0 {
		cfg.Policy.AffiliateDomains = append([]string(nil), DefaultAffiliateDomains...)
	}
	for i := range cfg.Publisher.Platforms {
		p := &cfg.Publisher.Platforms[i]
		if p.MinRevenue == 0 && p.MaxRevenue == 0 {
			p.MinRevenue, p.MaxRevenue = 0.5, 5.0
		}
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "48h"
	}
	if len(cfg.Scheduler.Topics) == 0 {
		cfg.Scheduler.Topics = append([]string(nil), DefaultTopics...)
	}
	if cfg.Monitoring.RetentionDays == 0 {
		cfg.Monitoring.RetentionDays = 90
	}
}
