package api

import (
	"context"
	"crypto/x509"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
)

// Config holds server configuration.
type Config struct {
	Addr    string
	Anchors []*x509.Certificate
}

// NewRouter creates the Chi router with all routes configured.
func NewRouter(cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logger)
	r.Use(recoverer)

	h := NewHandler(cfg.Anchors)
	r.Get("/health", h.Health)
	r.Post("/api/v1/verify", h.Verify)
	r.Post("/api/v1/inspect", h.Inspect)
	return r
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func Serve(cfg *Config) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
