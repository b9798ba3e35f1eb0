// cmd/triage/helpers.go
package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/docker"
	"triage/internal/flow"
)

const clientTimeout = 30 * time.Second

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Root().PersistentFlags().GetBool("json")
	return asJSON
}

func newContainerSource(cfg *config.Config, all bool) (*docker.Source, error) {
	client, err := docker.NewClient(cfg.DockerHost, clientTimeout)
	if err != nil {
		return nil, err
	}
	return docker.NewSource(client, all, cfg.TailLines, cfg.SinceWindow), nil
}

func newExecutionSource(cfg *config.Config, workflowID string, limit int) (*flow.Source, error) {
	if cfg.Engine.APIKey == "" {
		return nil, errors.New("workflow engine API key not set (TRIAGE_ENGINE_API_KEY)")
	}
	client := flow.NewClient(cfg.Engine.BaseURL, cfg.Engine.APIKey, clientTimeout)
	return flow.NewSource(client, workflowID, limit), nil
}

func emitJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
