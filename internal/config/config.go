// Package config loads server and client settings from an optional YAML
// file, a .env file and FREELANCE_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Gateway modes.
const (
	GatewayNone    = "none"
	GatewaySandbox = "sandbox"
	GatewayAMQP    = "amqp"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Client    ClientConfig    `yaml:"client"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RedisConfig enables the cross-instance event relay when URL is set.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type GatewayConfig struct {
	Mode         string        `yaml:"mode"`
	SandboxDelay time.Duration `yaml:"sandbox_delay"`
	AMQPURL      string        `yaml:"amqp_url"`
	Queue        string        `yaml:"queue"`
}

type JobsConfig struct {
	PayoutSweep string        `yaml:"payout_sweep"`
	PayoutAge   time.Duration `yaml:"payout_age"`
}

type LifecycleConfig struct {
	AutoStartMilestones       bool `yaml:"auto_start_milestones"`
	RequireBalancedMilestones bool `yaml:"require_balanced_milestones"`
}

// ClientConfig is used by the CLI when it talks to a remote server.
type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: defaultDBPath()},
		Auth: AuthConfig{
			JWTSecret: "change-me",
			TokenTTL:  24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Gateway: GatewayConfig{
			Mode:         GatewaySandbox,
			SandboxDelay: 2 * time.Second,
			Queue:        "freelance.payout.settled",
		},
		Jobs: JobsConfig{
			PayoutSweep: "@every 5m",
			PayoutAge:   10 * time.Minute,
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty; a named file that
// does not exist is an error. envFile is optional and ignored when absent.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Gateway.Mode {
	case GatewayNone, GatewaySandbox:
	case GatewayAMQP:
		if c.Gateway.AMQPURL == "" {
			return fmt.Errorf("gateway mode %q requires gateway.amqp_url", c.Gateway.Mode)
		}
	default:
		return fmt.Errorf("unknown gateway mode %q", c.Gateway.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Jobs.PayoutAge < 0 {
		return fmt.Errorf("jobs.payout_age must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	envString("FREELANCE_ADDR", &cfg.Server.Addr)
	envDuration("FREELANCE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("FREELANCE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	if v := os.Getenv("FREELANCE_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	envString("FREELANCE_DB", &cfg.Database.Path)

	envString("FREELANCE_JWT_SECRET", &cfg.Auth.JWTSecret)
	envDuration("FREELANCE_TOKEN_TTL", &cfg.Auth.TokenTTL)

	envString("FREELANCE_LOG_LEVEL", &cfg.Log.Level)
	envString("FREELANCE_LOG_FORMAT", &cfg.Log.Format)

	envString("FREELANCE_REDIS_URL", &cfg.Redis.URL)
	envString("FREELANCE_REDIS_CHANNEL", &cfg.Redis.Channel)

	envString("FREELANCE_GATEWAY_MODE", &cfg.Gateway.Mode)
	envDuration("FREELANCE_SANDBOX_DELAY", &cfg.Gateway.SandboxDelay)
	envString("FREELANCE_AMQP_URL", &cfg.Gateway.AMQPURL)
	envString("FREELANCE_AMQP_QUEUE", &cfg.Gateway.Queue)

	envString("FREELANCE_PAYOUT_SWEEP", &cfg.Jobs.PayoutSweep)
	envDuration("FREELANCE_PAYOUT_AGE", &cfg.Jobs.PayoutAge)

	envBool("FREELANCE_AUTO_START_MILESTONES", &cfg.Lifecycle.AutoStartMilestones)
	envBool("FREELANCE_REQUIRE_BALANCED_MILESTONES", &cfg.Lifecycle.RequireBalancedMilestones)

	envString("FREELANCE_URL", &cfg.Client.BaseURL)
	envString("FREELANCE_TOKEN", &cfg.Client.Token)
	envDuration("FREELANCE_CLIENT_TIMEOUT", &cfg.Client.Timeout)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// Unparseable values keep the current setting.
func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "freelance.db"
	}
	return filepath.Join(home, ".freelance", "freelance.db")
}
