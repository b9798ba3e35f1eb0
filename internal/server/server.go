// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"triage/internal/config"
	"triage/internal/diagnosis"
	"triage/internal/docker"
	"triage/internal/flow"
	"triage/internal/store"
)

// Server exposes the diagnosis engine over HTTP.
type Server struct {
	cfg    *config.Config
	db     *store.DB
	server *http.Server
}

// New builds the server from config: report store, container source and,
// when an engine key is configured, the workflow execution source.
func New(cfg *config.Config) (*Server, error) {
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var containers ContainerSource
	dockerClient, err := docker.NewClient(cfg.DockerHost, 30*time.Second)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("docker client: %w", err)
	}
	containers = docker.NewSource(dockerClient, true, cfg.TailLines, cfg.SinceWindow)

	var executions ExecutionSource
	if cfg.Engine.APIKey != "" {
		engineClient := flow.NewClient(cfg.Engine.BaseURL, cfg.Engine.APIKey, 30*time.Second)
		executions = flow.NewSource(engineClient, "", 5)
	}

	handler := NewHandler(db, diagnosis.DefaultRegistry(), containers, executions,
		cfg.APIKey, cfg.MaxPayloadBytes, cfg.Workers, cfg.SweepTimeout)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Mux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // sweeps can take a while
		IdleTimeout:  120 * time.Second,
	}

	return &Server{cfg: cfg, db: db, server: server}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully. TLS is used
// when a certificate pair is configured.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		s.db.Close()
		return err
	}
	log.Printf("Server listening on %s", ln.Addr())
	return s.serve(ctx, ln)
}

// RunAndGetAddr binds the listener and returns its address immediately,
// serving in the background until ctx is canceled. Lets tests bind port 0.
func (s *Server) RunAndGetAddr(ctx context.Context) (string, error) {
	ln, err := s.listen()
	if err != nil {
		s.db.Close()
		return "", err
	}
	go s.serve(ctx, ln)
	return ln.Addr().String(), nil
}

func (s *Server) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}
	return ln, nil
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.db.Close()
		return err
	}

	return s.db.Close()
}
