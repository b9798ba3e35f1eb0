// internal/config/config.go
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig points at the workflow engine API. The API key comes from the
// environment only, never from the file.
type EngineConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"` // env var name for the key
	APIKey    string `yaml:"-"`           // resolved at load time
}

// Config drives both the CLI and the server.
type Config struct {
	// Container runtime
	DockerHost string `yaml:"docker_host"`

	// Workflow engine
	Engine EngineConfig `yaml:"engine"`

	// Sweep behavior
	Workers      int           `yaml:"workers"`
	SweepTimeout time.Duration `yaml:"sweep_timeout"`
	TailLines    int           `yaml:"tail_lines"`
	SinceWindow  time.Duration `yaml:"since_window"`

	// Server
	ListenAddr      string `yaml:"listen_addr"`
	DBPath          string `yaml:"db_path"`
	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
	MaxPayloadBytes int64  `yaml:"max_payload_bytes"`
	APIKey          string `yaml:"-"` // client auth, from env only
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		DockerHost:      "unix:///var/run/docker.sock",
		Engine:          EngineConfig{BaseURL: "http://localhost:5678"},
		Workers:         4,
		SweepTimeout:    2 * time.Minute,
		TailLines:       100,
		SinceWindow:     30 * time.Minute,
		ListenAddr:      ":8998",
		DBPath:          "triage.db",
		MaxPayloadBytes: 1 << 20,
	}
}

// Load reads YAML config from path and applies env overrides. An empty path
// yields defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("TRIAGE_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if host := os.Getenv("TRIAGE_DOCKER_HOST"); host != "" {
		cfg.DockerHost = host
	}
	if url := os.Getenv("TRIAGE_ENGINE_URL"); url != "" {
		cfg.Engine.BaseURL = url
	}

	// Engine key: an explicit env var name from the file wins, the fixed
	// name is the fallback.
	if cfg.Engine.APIKeyEnv != "" {
		cfg.Engine.APIKey = os.Getenv(cfg.Engine.APIKeyEnv)
	}
	if cfg.Engine.APIKey == "" {
		cfg.Engine.APIKey = os.Getenv("TRIAGE_ENGINE_API_KEY")
	}
}
