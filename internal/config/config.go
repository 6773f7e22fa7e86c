package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "SOUNDSHELF"
	defaultHTTPAddress       = "0.0.0.0:5000"
	defaultAllowedOrigins    = "*"
	defaultVoteRatePerMinute = 60
	defaultDatabasePath      = "soundshelf.db"
	defaultLogLevel          = "info"
	defaultListLimit         = 10
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	AllowedOrigins    []string
	VoteRatePerMinute int
	DatabasePath      string
	LogLevel          string
	ListLimit         int
	EnableReset       bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", defaultAllowedOrigins)
	configViper.SetDefault("http.vote_rate_per_minute", defaultVoteRatePerMinute)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("recommendations.list_limit", defaultListLimit)
	configViper.SetDefault("testing.enable_reset", false)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       strings.TrimSpace(configViper.GetString("http.address")),
		AllowedOrigins:    splitOrigins(configViper.GetString("http.allowed_origins")),
		VoteRatePerMinute: configViper.GetInt("http.vote_rate_per_minute"),
		DatabasePath:      strings.TrimSpace(configViper.GetString("database.path")),
		LogLevel:          configViper.GetString("log.level"),
		ListLimit:         configViper.GetInt("recommendations.list_limit"),
		EnableReset:       configViper.GetBool("testing.enable_reset"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("http.allowed_origins is required")
	}
	if c.VoteRatePerMinute < 0 {
		return fmt.Errorf("http.vote_rate_per_minute must not be negative")
	}
	if c.ListLimit < 0 {
		return fmt.Errorf("recommendations.list_limit must not be negative")
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
