// internal/docker/types.go
package docker

import (
	"strings"

	"triage/internal/diagnosis"
)

// Container is one entry of the list endpoint. The list record is shallow;
// exit codes and OOM flags require an Inspect.
type Container struct {
	ID     string   `json:"Id"`
	Names  []string `json:"Names"`
	Image  string   `json:"Image"`
	State  string   `json:"State"`
	Status string   `json:"Status"`
}

// Name returns the primary container name without the daemon's leading slash.
func (c Container) Name() string {
	if len(c.Names) == 0 {
		return c.ID
	}
	return strings.TrimPrefix(c.Names[0], "/")
}

// Subject builds the shallow subject snapshot available from a list entry.
func (c Container) Subject() diagnosis.Subject {
	return diagnosis.Subject{
		ID:     shortID(c.ID),
		Kind:   diagnosis.KindContainer,
		Name:   c.Name(),
		Image:  c.Image,
		Status: c.State,
	}
}

// Inspect is the subset of the inspect payload the diagnosis engine reads.
type Inspect struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	RestartCount int    `json:"RestartCount"`
	Config       struct {
		Image string `json:"Image"`
		Tty   bool   `json:"Tty"`
	} `json:"Config"`
	State struct {
		Status     string `json:"Status"`
		Running    bool   `json:"Running"`
		ExitCode   int    `json:"ExitCode"`
		OOMKilled  bool   `json:"OOMKilled"`
		StartedAt  string `json:"StartedAt"`
		FinishedAt string `json:"FinishedAt"`
		Health     struct {
			Status string `json:"Status"`
		} `json:"Health"`
	} `json:"State"`
}

// Subject builds the full subject snapshot from an inspect record.
func (ins Inspect) Subject() diagnosis.Subject {
	health := ins.State.Health.Status
	if health == "" {
		health = "no_healthcheck"
	}
	return diagnosis.Subject{
		ID:           shortID(ins.ID),
		Kind:         diagnosis.KindContainer,
		Name:         strings.TrimPrefix(ins.Name, "/"),
		Image:        ins.Config.Image,
		Status:       ins.State.Status,
		Health:       health,
		ExitCode:     ins.State.ExitCode,
		OOMKilled:    ins.State.OOMKilled,
		RestartCount: ins.RestartCount,
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
