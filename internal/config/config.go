// Package config loads hub configuration from a YAML file with
// environment variable overrides (HUB_* prefix), following the
// teacher's env-var-with-default CLI idiom and andymwolf-agentium's
// viper+yaml.v3 layering.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server holds the HTTP/WebSocket front door's bind settings.
type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Discovery holds the agent registry's liveness-tracking settings.
type Discovery struct {
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
	TTL               time.Duration `mapstructure:"ttl"`
}

// Messaging holds message router and transport validation settings.
type Messaging struct {
	ValidateSchema  bool `mapstructure:"validate_schema"`
	HistorySize     int  `mapstructure:"history_size"`
	OutboxCapacity  int  `mapstructure:"outbox_capacity"`
}

// Coordination holds task-engine tuning shared across all tasks.
type Coordination struct {
	ConsensusThreshold float64       `mapstructure:"consensus_threshold"`
	TaskTTL            time.Duration `mapstructure:"task_ttl"`
}

// Auth holds the hub's optional shared-secret/bearer-token scheme.
// An empty Token disables authentication entirely, matching the
// spec's "no human authentication" non-goal.
type Auth struct {
	Token string `mapstructure:"token"`
}

// Logging holds structured-logging output settings.
type Logging struct {
	Format string `mapstructure:"format"` // "json" or "terminal"
	Debug  bool   `mapstructure:"debug"`
}

// Config is the full set of hub configuration, merged from defaults, an
// optional YAML file, and HUB_*-prefixed environment variables, in
// that order of increasing precedence.
type Config struct {
	Server       Server       `mapstructure:"server"`
	Discovery    Discovery    `mapstructure:"discovery"`
	Messaging    Messaging    `mapstructure:"messaging"`
	Coordination Coordination `mapstructure:"coordination"`
	Auth         Auth         `mapstructure:"auth"`
	Logging      Logging      `mapstructure:"logging"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.broadcast_interval", 30*time.Second)
	v.SetDefault("discovery.ttl", 2*time.Minute)
	v.SetDefault("messaging.validate_schema", false)
	v.SetDefault("messaging.history_size", 256)
	v.SetDefault("messaging.outbox_capacity", 64)
	v.SetDefault("coordination.consensus_threshold", 0.5)
	v.SetDefault("coordination.task_ttl", 15*time.Minute)
	v.SetDefault("auth.token", "")
	v.SetDefault("logging.format", "terminal")
	v.SetDefault("logging.debug", false)
}

// Load reads configuration from path (if non-empty and present) and
// overlays HUB_*-prefixed environment variables, returning the merged
// result. path may be empty to use defaults plus environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
