package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains runtime configuration for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Upstreams UpstreamsConfig `yaml:"upstreams" mapstructure:"upstreams"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`

	// RoutesFile optionally overrides the built-in route table.
	RoutesFile string `yaml:"routes_file" mapstructure:"routes_file"`
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds" mapstructure:"idle_timeout_seconds"`
}

// RedisConfig captures the shared counter store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// AuthConfig captures token verification settings.
type AuthConfig struct {
	// Secret is the HS256 signing secret shared with the identity service.
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// RateLimitConfig captures both admission-control tiers.
type RateLimitConfig struct {
	GlobalMax              int64 `yaml:"global_max" mapstructure:"global_max"`
	GlobalWindowSeconds    int   `yaml:"global_window_seconds" mapstructure:"global_window_seconds"`
	SensitiveMax           int64 `yaml:"sensitive_max" mapstructure:"sensitive_max"`
	SensitiveWindowSeconds int   `yaml:"sensitive_window_seconds" mapstructure:"sensitive_window_seconds"`
}

// UpstreamsConfig maps each backend service to its origin URL.
type UpstreamsConfig struct {
	Identity string `yaml:"identity" mapstructure:"identity"`
	Posts    string `yaml:"posts" mapstructure:"posts"`
	Media    string `yaml:"media" mapstructure:"media"`
	Search   string `yaml:"search" mapstructure:"search"`

	// TimeoutSeconds bounds every upstream call; a timed-out call is a
	// terminal 502 for that request.
	TimeoutSeconds int `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// LoggingConfig captures logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// ReadTimeout returns the configured read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the configured idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// GlobalWindow returns the coarse limiter window as a duration.
func (r RateLimitConfig) GlobalWindow() time.Duration {
	return time.Duration(r.GlobalWindowSeconds) * time.Second
}

// SensitiveWindow returns the sensitive-route limiter window as a duration.
func (r RateLimitConfig) SensitiveWindow() time.Duration {
	return time.Duration(r.SensitiveWindowSeconds) * time.Second
}

// Timeout returns the upstream call timeout as a duration.
func (u UpstreamsConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// Load reads configuration from the provided path and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.secret", "")

	v.SetDefault("ratelimit.global_max", 100)
	v.SetDefault("ratelimit.global_window_seconds", 60)
	v.SetDefault("ratelimit.sensitive_max", 20)
	v.SetDefault("ratelimit.sensitive_window_seconds", 900)

	v.SetDefault("upstreams.identity", "http://identity:3001")
	v.SetDefault("upstreams.posts", "http://post:3002")
	v.SetDefault("upstreams.media", "http://media:3003")
	v.SetDefault("upstreams.search", "http://search:3004")
	v.SetDefault("upstreams.timeout_seconds", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("routes_file", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pulsefeed/gateway")
	}

	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth.secret is required")
	}

	return &cfg, nil
}
