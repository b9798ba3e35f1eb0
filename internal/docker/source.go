// internal/docker/source.go
package docker

import (
	"context"
	"time"

	"triage/internal/diagnosis"
	"triage/internal/sweep"
)

// Source adapts the Engine API to the sweep pipeline.
type Source struct {
	client *Client
	all    bool
	tail   int
	since  time.Duration
}

// NewSource creates a container source. tail bounds the log window per
// container; since further narrows it to recent output when nonzero.
func NewSource(client *Client, all bool, tail int, since time.Duration) *Source {
	if tail <= 0 {
		tail = 100
	}
	return &Source{client: client, all: all, tail: tail, since: since}
}

// List returns the container fleet as shallow subjects. Fetch upgrades each
// to a full snapshot.
func (s *Source) List(ctx context.Context) ([]diagnosis.Subject, error) {
	containers, err := s.client.ListContainers(ctx, s.all)
	if err != nil {
		return nil, err
	}

	subjects := make([]diagnosis.Subject, 0, len(containers))
	for _, c := range containers {
		subjects = append(subjects, c.Subject())
	}
	return subjects, nil
}

// Fetch inspects the container and pulls its recent logs. Log text is only
// fetched for states that can have produced useful output.
func (s *Source) Fetch(ctx context.Context, subject diagnosis.Subject) (sweep.Snapshot, error) {
	ins, err := s.client.Inspect(ctx, subject.Name)
	if err != nil {
		return sweep.Snapshot{}, err
	}

	snap := sweep.Snapshot{Subject: ins.Subject()}

	switch ins.State.Status {
	case "running", "exited", "restarting":
		logs, err := s.client.Logs(ctx, subject.Name, LogOptions{
			Tail:       s.tail,
			Since:      s.since,
			Timestamps: true,
			TTY:        ins.Config.Tty,
		})
		if err != nil {
			return sweep.Snapshot{}, err
		}
		snap.Text = logs
	}

	return snap, nil
}

// Diagnose runs the full single-container pipeline: inspect, fetch logs,
// classify, build the report.
func (s *Source) Diagnose(ctx context.Context, name string, reg *diagnosis.Registry) (diagnosis.Report, error) {
	ins, err := s.client.Inspect(ctx, name)
	if err != nil {
		return diagnosis.Report{}, err
	}

	logs, err := s.client.Logs(ctx, name, LogOptions{
		Tail:       s.tail,
		Since:      s.since,
		Timestamps: true,
		TTY:        ins.Config.Tty,
	})
	if err != nil {
		return diagnosis.Report{}, err
	}

	return diagnosis.BuildReport(ins.Subject(), reg.Classify(logs), logs), nil
}
