package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Config is the process configuration: config.yaml, then .env and
// LOANWISE_* environment overrides.
type Config struct {
	HTTP struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		JSON       bool   `yaml:"json"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Artifacts struct {
		ModelType    string `yaml:"model_type"`
		ModelPath    string `yaml:"model_path"`
		SchemaPath   string `yaml:"schema_path"`
		RegistryPath string `yaml:"registry_path"`
		Name         string `yaml:"name"`
		Watch        bool   `yaml:"watch"`
	} `yaml:"artifacts"`
	RateLimit struct {
		Requests   int           `yaml:"requests"`
		Window     time.Duration `yaml:"window"`
		MaxClients int           `yaml:"max_clients"`
	} `yaml:"rate_limit"`
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 15 * time.Second
	cfg.HTTP.WriteTimeout = 15 * time.Second
	cfg.HTTP.MaxBodyBytes = 1 << 20
	cfg.HTTP.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Artifacts.ModelType = "xgboost_json"
	cfg.Artifacts.ModelPath = "loan_approval_model.json"
	cfg.Artifacts.SchemaPath = "model_columns.json"
	cfg.Artifacts.Name = "loan_approval"
	cfg.Artifacts.Watch = true
	cfg.RateLimit.Requests = 30
	cfg.RateLimit.Window = time.Minute
	cfg.RateLimit.MaxClients = 10000
	return cfg
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and environment overrides. A missing file is not an error; the
// defaults and environment are enough to start.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load(".env")
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTP.Port = cast.ToInt(getOrReturnDefault("LOANWISE_HTTP_PORT", cfg.HTTP.Port))
	cfg.Log.Level = cast.ToString(getOrReturnDefault("LOANWISE_LOG_LEVEL", cfg.Log.Level))
	cfg.Log.File = cast.ToString(getOrReturnDefault("LOANWISE_LOG_FILE", cfg.Log.File))
	cfg.Artifacts.ModelType = cast.ToString(getOrReturnDefault("LOANWISE_MODEL_TYPE", cfg.Artifacts.ModelType))
	cfg.Artifacts.ModelPath = cast.ToString(getOrReturnDefault("LOANWISE_MODEL_PATH", cfg.Artifacts.ModelPath))
	cfg.Artifacts.SchemaPath = cast.ToString(getOrReturnDefault("LOANWISE_SCHEMA_PATH", cfg.Artifacts.SchemaPath))
	cfg.Artifacts.RegistryPath = cast.ToString(getOrReturnDefault("LOANWISE_REGISTRY_PATH", cfg.Artifacts.RegistryPath))
	cfg.Artifacts.Name = cast.ToString(getOrReturnDefault("LOANWISE_ARTIFACT_NAME", cfg.Artifacts.Name))
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// Validate checks that the artifacts can be located and the server settings
// are usable.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.MaxClients < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.UseRegistry() {
		if c.Artifacts.Name == "" {
			return errors.New("artifacts.name is required with a registry")
		}
		return nil
	}
	if c.Artifacts.ModelType == "" || c.Artifacts.ModelPath == "" || c.Artifacts.SchemaPath == "" {
		return errors.New("artifacts.model_type, model_path and schema_path are required without a registry")
	}
	return nil
}

// UseRegistry reports whether artifacts come from the sqlite registry rather
// than from loose files.
func (c *Config) UseRegistry() bool {
	return c.Artifacts.RegistryPath != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
