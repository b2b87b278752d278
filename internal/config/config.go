// Package config loads server configuration from defaults, an optional
// YAML file, and DUEL_-prefixed environment variables, in that order of
// precedence (lowest to highest).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the listener addresses and shutdown behavior.
type ServerConfig struct {
	WebSocketAddress string        `mapstructure:"websocket_address"`
	GRPCAddress      string        `mapstructure:"grpc_address"`
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace"`
}

// LoggingConfig selects the log level and output encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TimersConfig carries the per-window decision clocks. A zero duration
// disables that clock. RejoinWindow is how long a disconnected seat is
// held before the match is forfeited.
type TimersConfig struct {
	TurnLimit      time.Duration `mapstructure:"turn_limit"`
	ResponseLimit  time.Duration `mapstructure:"response_limit"`
	EffectLimit    time.Duration `mapstructure:"effect_limit"`
	MulliganLimit  time.Duration `mapstructure:"mulligan_limit"`
	TurnOrderLimit time.Duration `mapstructure:"turn_order_limit"`
	RejoinWindow   time.Duration `mapstructure:"rejoin_window"`
}

// DatabaseConfig points at Postgres. An empty URL runs the server
// without persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig carries the rejoin-token secret and admin credentials.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminUser     string        `mapstructure:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// CardsConfig points at the card data directory. Empty means the
// built-in starter set only.
type CardsConfig struct {
	Dir string `mapstructure:"dir"`
}

// AIConfig controls the built-in opponent offered to solo players.
type AIConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Name      string        `mapstructure:"name"`
	MoveDelay time.Duration `mapstructure:"move_delay"`
}

// Config is the full server configuration, resolved once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Timers   TimersConfig   `mapstructure:"timers"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cards    CardsConfig    `mapstructure:"cards"`
	AI       AIConfig       `mapstructure:"ai"`
}

// setDefaults registers every key. Viper only surfaces environment
// overrides for keys it already knows about, so nothing may be missing
// here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket_address", ":8080")
	v.SetDefault("server.grpc_address", ":9090")
	v.SetDefault("server.shutdown_grace", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("timers.turn_limit", 2*time.Minute)
	v.SetDefault("timers.response_limit", 30*time.Second)
	v.SetDefault("timers.effect_limit", 45*time.Second)
	v.SetDefault("timers.mulligan_limit", time.Minute)
	v.SetDefault("timers.turn_order_limit", 30*time.Second)
	v.SetDefault("timers.rejoin_window", time.Minute)

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("cards.dir", "")

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.name", "Pacifista")
	v.SetDefault("ai.move_delay", 300*time.Millisecond)
}

// Load builds the configuration. A missing file at path is not an
// error; the defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.WebSocketAddress == "" {
		return errors.New("server.websocket_address must not be empty")
	}
	if c.Server.GRPCAddress == "" {
		return errors.New("server.grpc_address must not be empty")
	}
	clocks := map[string]time.Duration{
		"timers.turn_limit":       c.Timers.TurnLimit,
		"timers.response_limit":   c.Timers.ResponseLimit,
		"timers.effect_limit":     c.Timers.EffectLimit,
		"timers.mulligan_limit":   c.Timers.MulliganLimit,
		"timers.turn_order_limit": c.Timers.TurnOrderLimit,
		"timers.rejoin_window":    c.Timers.RejoinWindow,
	}
	for name, d := range clocks {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
