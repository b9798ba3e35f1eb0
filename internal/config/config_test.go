// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.DockerHost != "unix:///var/run/docker.sock" {
		t.Errorf("DockerHost = %q", cfg.DockerHost)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.SweepTimeout != 2*time.Minute {
		t.Errorf("SweepTimeout = %v", cfg.SweepTimeout)
	}
	if cfg.TailLines != 100 {
		t.Errorf("TailLines = %d, want 100", cfg.TailLines)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")

	content := `
docker_host: tcp://10.0.0.5:2375
workers: 8
sweep_timeout: 45s
tail_lines: 250
engine:
  base_url: http://n8n.internal:5678
  api_key_env: TEST_ENGINE_KEY
listen_addr: ":9000"
db_path: /var/lib/triage/triage.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_ENGINE_KEY", "k-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DockerHost != "tcp://10.0.0.5:2375" {
		t.Errorf("DockerHost = %q", cfg.DockerHost)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.SweepTimeout != 45*time.Second {
		t.Errorf("SweepTimeout = %v, want 45s", cfg.SweepTimeout)
	}
	if cfg.Engine.BaseURL != "http://n8n.internal:5678" {
		t.Errorf("Engine.BaseURL = %q", cfg.Engine.BaseURL)
	}
	if cfg.Engine.APIKey != "k-from-env" {
		t.Errorf("Engine.APIKey = %q, want resolved from env", cfg.Engine.APIKey)
	}
	// Unset fields keep defaults.
	if cfg.MaxPayloadBytes != 1<<20 {
		t.Errorf("MaxPayloadBytes = %d, want default", cfg.MaxPayloadBytes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGE_API_KEY", "server-secret")
	t.Setenv("TRIAGE_DOCKER_HOST", "tcp://override:2375")
	t.Setenv("TRIAGE_ENGINE_API_KEY", "engine-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "server-secret" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.DockerHost != "tcp://override:2375" {
		t.Errorf("DockerHost = %q", cfg.DockerHost)
	}
	if cfg.Engine.APIKey != "engine-secret" {
		t.Errorf("Engine.APIKey = %q", cfg.Engine.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Load with missing file did not error")
	}
}
