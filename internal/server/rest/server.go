// Package rest exposes the document core to the presentation layer over
// HTTP. No business logic lives here: handlers forward user intents to the
// transfer controller, the catalog view, and the resolver, and render
// whatever state those report.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdfvault/pdfvault/internal/logging"
	"github.com/pdfvault/pdfvault/internal/server/config"
	"github.com/pdfvault/pdfvault/internal/server/docview"
	"github.com/pdfvault/pdfvault/internal/server/resolve"
	"github.com/pdfvault/pdfvault/internal/server/transfer"
)

type Server struct {
	addr           string
	secretKey      []byte
	maxUploadBytes int64

	controller *transfer.Controller
	view       *docview.View
	resolver   *resolve.Resolver
	logger     logging.Logger
}

func NewServer(cfg *config.Config, l logging.Logger, c *transfer.Controller, v *docview.View, r *resolve.Resolver) *Server {
	return &Server{
		addr:           cfg.EndpointAddrHTTP,
		secretKey:      []byte(cfg.SecretKey),
		maxUploadBytes: cfg.MaxUploadBytes,
		controller:     c,
		view:           v,
		resolver:       r,
		logger:         l.With("module", "rest"),
	}
}

// Router assembles the chi route tree. Split out of Run so tests can mount it
// on httptest servers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleUpload)
		r.Delete("/documents/{id}", s.handleDelete)
		r.Get("/documents/{id}/view", s.handleView)

		r.Post("/transfers/cancel", s.handleCancel)
		r.Get("/transfers/active", s.handleActiveTransfer)

		r.Get("/usage", s.handleUsage)
		r.Post("/signout", s.handleSignOut)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
