// Package main API.
//
// go-pdftools provides a REST API for working with PDF files: merging,
// signing, watermarking, cropping, redacting, page tools, conversions,
// comparison and multi-device scanning.
//
//	@title			go-pdftools API
//	@version		1.0.0
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- application/pdf
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/config"
	"go-pdftools/internal/logging"
	"go-pdftools/internal/server"
)

func gracefulShutdown(apiServer *http.Server, log logrus.FieldLogger, done chan bool, cleanupFunc func()) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	// Cleanup all session files and temp files
	if cleanupFunc != nil {
		log.Info("cleaning directories")
		cleanupFunc()
	}

	log.Info("server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// cleanupDirs removes files left behind by a previous run.
func cleanupDirs(dirs ...string) {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			_ = os.RemoveAll(filepath.Join(dir, entry.Name()))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	cleanupDirs(cfg.UploadDir, cfg.OutputDir)

	apiServer, shutdown, err := server.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("cannot start server")
	}
	log.WithField("addr", apiServer.Addr).Info("starting server")

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, log, done, func() {
		shutdown()
		cleanupDirs(cfg.UploadDir, cfg.OutputDir)
	})

	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("graceful shutdown complete")
}
