// internal/docker/client.go
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// apiVersion is the minimum Engine API version carrying everything we read
// (State.OOMKilled, RestartCount, log since/tail).
const apiVersion = "v1.24"

// ErrNotFound indicates the daemon knows no such container.
var ErrNotFound = errors.New("container not found")

// Client is a minimal Docker Engine API client. It speaks plain HTTP+JSON
// to the daemon over a unix socket or TCP.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for host, e.g. "unix:///var/run/docker.sock"
// or "tcp://10.0.0.5:2375".
func NewClient(host string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("docker host %q: %w", host, err)
	}

	switch u.Scheme {
	case "unix":
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: 5 * time.Second}
				return d.DialContext(ctx, "unix", u.Path)
			},
		}
		return &Client{
			// Host part is a placeholder; the transport always dials the socket.
			base: "http://docker/" + apiVersion,
			http: &http.Client{Timeout: timeout, Transport: transport},
		}, nil
	case "tcp", "http":
		return &Client{
			base: "http://" + u.Host + "/" + apiVersion,
			http: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				},
			},
		}, nil
	}
	return nil, fmt.Errorf("docker host %q: unsupported scheme %q", host, u.Scheme)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("docker API %s: %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

// ListContainers returns container summaries, including stopped ones when
// all is set.
func (c *Client) ListContainers(ctx context.Context, all bool) ([]Container, error) {
	query := url.Values{}
	if all {
		query.Set("all", "1")
	}

	resp, err := c.get(ctx, "/containers/json", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var containers []Container
	if err := json.NewDecoder(resp.Body).Decode(&containers); err != nil {
		return nil, fmt.Errorf("decode container list: %w", err)
	}
	return containers, nil
}

// Inspect returns the full state record for one container.
func (c *Client) Inspect(ctx context.Context, nameOrID string) (Inspect, error) {
	resp, err := c.get(ctx, "/containers/"+nameOrID+"/json", nil)
	if err != nil {
		return Inspect{}, err
	}
	defer resp.Body.Close()

	var ins Inspect
	if err := json.NewDecoder(resp.Body).Decode(&ins); err != nil {
		return Inspect{}, fmt.Errorf("decode inspect: %w", err)
	}
	return ins, nil
}

// LogOptions selects the log window.
type LogOptions struct {
	Tail       int
	Since      time.Duration
	Timestamps bool
	// TTY containers stream raw bytes; everything else is multiplexed.
	TTY bool
}

// Logs fetches a container's recent stdout+stderr as text.
func (c *Client) Logs(ctx context.Context, nameOrID string, opts LogOptions) (string, error) {
	query := url.Values{}
	query.Set("stdout", "1")
	query.Set("stderr", "1")
	if opts.Tail > 0 {
		query.Set("tail", strconv.Itoa(opts.Tail))
	}
	if opts.Timestamps {
		query.Set("timestamps", "1")
	}
	if opts.Since > 0 {
		query.Set("since", strconv.FormatInt(time.Now().Add(-opts.Since).Unix(), 10))
	}

	resp, err := c.get(ctx, "/containers/"+nameOrID+"/logs", query)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if opts.TTY {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read logs: %w", err)
		}
		return string(raw), nil
	}

	return demuxLogs(resp.Body)
}
