// internal/docker/client_test.go
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"triage/internal/diagnosis"
)

// fakeDaemon serves a two-container fleet the way the Engine API would.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/"+apiVersion+"/containers/json", func(w http.ResponseWriter, r *http.Request) {
		list := []map[string]interface{}{
			{"Id": "aaaaaaaaaaaaaaaa", "Names": []string{"/web"}, "Image": "nginx:1.27", "State": "running", "Status": "Up 2 hours"},
			{"Id": "bbbbbbbbbbbbbbbb", "Names": []string{"/worker"}, "Image": "worker:dev", "State": "exited", "Status": "Exited (137) 5 minutes ago"},
		}
		if r.URL.Query().Get("all") != "1" {
			list = list[:1]
		}
		json.NewEncoder(w).Encode(list)
	})

	mux.HandleFunc("/"+apiVersion+"/containers/web/json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Id":           "aaaaaaaaaaaaaaaa",
			"Name":         "/web",
			"RestartCount": 0,
			"Config":       map[string]interface{}{"Image": "nginx:1.27", "Tty": false},
			"State": map[string]interface{}{
				"Status": "running", "Running": true, "ExitCode": 0, "OOMKilled": false,
			},
		})
	})

	mux.HandleFunc("/"+apiVersion+"/containers/web/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Write(frame(1, "2024-01-01T00:00:00Z INFO: ready\n"))
		w.Write(frame(2, "2024-01-01T00:00:01Z ERROR: connection refused to db:5432\n"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"No such container"}`, http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, _ := url.Parse(server.URL)
	c, err := NewClient("tcp://"+u.Host, 10*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestListContainers(t *testing.T) {
	server := fakeDaemon(t)
	defer server.Close()
	c := testClient(t, server)

	containers, err := c.ListContainers(context.Background(), true)
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	if len(containers) != 2 {
		t.Fatalf("ListContainers = %d containers, want 2", len(containers))
	}
	if containers[0].Name() != "web" {
		t.Errorf("Name = %q, want web", containers[0].Name())
	}
	if containers[1].State != "exited" {
		t.Errorf("State = %q, want exited", containers[1].State)
	}

	running, err := c.ListContainers(context.Background(), false)
	if err != nil {
		t.Fatalf("ListContainers(running): %v", err)
	}
	if len(running) != 1 {
		t.Errorf("ListContainers(running) = %d, want 1", len(running))
	}
}

func TestInspectSubject(t *testing.T) {
	server := fakeDaemon(t)
	defer server.Close()
	c := testClient(t, server)

	ins, err := c.Inspect(context.Background(), "web")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	subject := ins.Subject()
	if subject.Name != "web" {
		t.Errorf("Name = %q, want web", subject.Name)
	}
	if subject.ID != "aaaaaaaaaaaa" {
		t.Errorf("ID = %q, want 12-char short id", subject.ID)
	}
	if subject.Health != "no_healthcheck" {
		t.Errorf("Health = %q, want no_healthcheck", subject.Health)
	}
}

func TestInspectNotFound(t *testing.T) {
	server := fakeDaemon(t)
	defer server.Close()
	c := testClient(t, server)

	_, err := c.Inspect(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Inspect(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestLogsDemuxed(t *testing.T) {
	server := fakeDaemon(t)
	defer server.Close()
	c := testClient(t, server)

	logs, err := c.Logs(context.Background(), "web", LogOptions{Tail: 100, Timestamps: true})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if !strings.Contains(logs, "connection refused") {
		t.Errorf("Logs = %q, want stderr frame included", logs)
	}
}

func TestSourceDiagnose(t *testing.T) {
	server := fakeDaemon(t)
	defer server.Close()
	src := NewSource(testClient(t, server), true, 100, 0)

	report, err := src.Diagnose(context.Background(), "web", diagnosis.DefaultRegistry())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	if report.Analysis.Total != 1 {
		t.Fatalf("Total = %d, want 1", report.Analysis.Total)
	}
	if report.Analysis.High != 1 {
		t.Errorf("High = %d, want 1", report.Analysis.High)
	}
	if len(report.Errors.High) == 0 || report.Errors.High[0].PatternID != "connection_refused" {
		t.Errorf("Errors.High = %+v, want connection_refused", report.Errors.High)
	}
	// Running container with no metadata flags: priority comes from the
	// first high finding.
	if report.PriorityIssue == "" {
		t.Error("PriorityIssue is empty")
	}
}

func TestNewClientBadScheme(t *testing.T) {
	if _, err := NewClient("ftp://nope", 0); err == nil {
		t.Error("NewClient accepted unsupported scheme")
	}
}
