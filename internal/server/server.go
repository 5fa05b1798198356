// Package server provides the HTTP server setup for go-pdftools.
//
// NewServer creates and configures the HTTP server, session store, and file directories.
//
// Expected outputs:
// - Server listens on the configured port (default 8080)
// - Idle sessions and their files are swept periodically
//
// Usage:
//
//	srv, shutdown, err := server.NewServer(cfg, log)
//	defer shutdown()
//	srv.ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/config"
	"go-pdftools/internal/session"
)

type Server struct {
	cfg      *config.Config
	Sessions *session.Store
	log      logrus.FieldLogger
}

// New prepares the working directories and the session store.
func New(cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Server{
		cfg:      cfg,
		Sessions: session.NewStore(cfg.SessionTTL, log),
		log:      log,
	}, nil
}

// NewServer returns the HTTP server and a shutdown function that stops the
// session sweeper and removes every session's files.
func NewServer(cfg *config.Config, log logrus.FieldLogger) (*http.Server, func(), error) {
	srv, err := New(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Sessions.Run(ctx, cfg.SweepInterval)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     srv.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 30 * time.Second,
		// Conversions may run up to the converter timeout.
		WriteTimeout: cfg.ConvertTimeout + 30*time.Second,
	}

	shutdown := func() {
		cancel()
		srv.Sessions.CleanupAll()
	}
	return server, shutdown, nil
}
