// Package server exposes one analysis session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/chartloom-cli/internal/history"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

// MaxUploadBytes bounds a single multipart upload.
const MaxUploadBytes = 100 << 20

// Config holds the server's collaborators.
type Config struct {
	Session        *pipeline.Session
	History        *history.Store // optional
	Workspace      string         // label used for recorded runs
	UploadDir      string
	AllowedOrigins []string
	Logger         *slog.Logger
	// RunInfo fills provider, model and usage fields of a recorded run.
	RunInfo func(*history.Run)
}

// Server serves the JSON API.
type Server struct {
	session   *pipeline.Session
	history   *history.Store
	workspace string
	uploadDir string
	origins   []string
	runInfo   func(*history.Run)
	logger    *slog.Logger
}

// New returns a server for cfg. A nil logger discards output.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	return &Server{
		session:   cfg.Session,
		history:   cfg.History,
		workspace: cfg.Workspace,
		uploadDir: cfg.UploadDir,
		origins:   origins,
		runInfo:   cfg.RunInfo,
		logger:    logger,
	}
}

// Handler builds the router with middleware and all API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/datasets", s.listDatasets)
		r.Post("/datasets", s.uploadDataset)
		r.Delete("/datasets/{name}", s.deleteDataset)
		r.Get("/schema", s.schema)
		r.Post("/analyze", s.analyze)
		r.Get("/result", s.result)
		r.Get("/chat", s.transcript)
		r.Post("/chat", s.chat)
		r.Get("/history", s.listHistory)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg.Go(func() error {
		s.logger.Info("starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// echoRequestID returns the request id, incoming or generated, to the client.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
