// Package server exposes pgmeta over HTTP.
//
// Routes:
//
//	GET  /schemas/{schema}                    schema summary (YAML)
//	GET  /schemas/{schema}/tables/{table}     table description (YAML)
//	GET  /schemas/{schema}/tables/{table}/rows table rows (YAML)
//	POST /query                               ad hoc query (YAML)
//	GET  /prompts/schema/{schema}             agent prompt (text)
//	GET  /prompts/table/{schema}/{table}      agent prompt (text)
//	GET  /prompts/query/{schema}/{table}      agent prompt (text)
//	GET  /healthz                             session liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Backend answers the requests the server routes.
type Backend interface {
	SchemaSummary(ctx context.Context, schema string) (string, error)
	TableDescription(ctx context.Context, schema, table string) (string, error)
	QueryYAML(ctx context.Context, sql string) (string, error)
	PreviewYAML(ctx context.Context, b *database.SelectBuilder) (string, error)
	Ping(ctx context.Context) error
}

// Config holds listener settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server is the HTTP transport.
type Server struct {
	cfg     Config
	backend Backend
	log     *logger.Logger
	router  chi.Router
}

// New builds a Server and its routes.
func New(cfg Config, backend Backend, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, backend: backend, log: log}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/schemas/{schema}", func(r chi.Router) {
		r.Get("/", s.handleSchema)
		r.Get("/tables/{table}", s.handleTable)
		r.Get("/tables/{table}/rows", s.handleRows)
	})
	r.Post("/query", s.handleQuery)
	r.Route("/prompts", func(r chi.Router) {
		r.Get("/schema/{schema}", s.handleSchemaPrompt)
		r.Get("/table/{schema}/{table}", s.handleTablePrompt)
		r.Get("/query/{schema}/{table}", s.handleQueryPrompt)
	})

	s.router = r
	return s
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.log.With().Str("addr", s.cfg.Addr).Logger().Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.log.Debug("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs one line per request through the zerolog wrapper.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		s.log.HTTPEvent().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
