// Package server exposes chat analysis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ccollicutt/chatwrap/pkg/analyzer"
	"github.com/ccollicutt/chatwrap/pkg/config"
	"github.com/ccollicutt/chatwrap/pkg/output"
	"github.com/ccollicutt/chatwrap/pkg/parser"
	"github.com/ccollicutt/chatwrap/pkg/webhook"
)

const shutdownTimeout = 5 * time.Second

// Server handles analysis requests. Each request runs one parse and one
// analysis to completion; nothing is shared between requests.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	parser   *parser.Parser
	webhooks *webhook.Client
	log      zerolog.Logger

	// pending tracks webhook deliveries still in flight.
	pending sync.WaitGroup
}

// New builds a server from a validated config.
func New(cfg *config.Config, logger zerolog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		cfg:      cfg,
		parser:   parser.New(parser.WithLocation(cfg.Location())),
		webhooks: webhook.NewClient(),
		log:      logger,
	}

	router.Get("/healthz", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
	})

	return s
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down and waits for pending webhook deliveries.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("HTTP server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.pending.Wait()
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyze handles POST /api/v1/analyze. The body is the export itself.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	logger := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.OutputJSON
	}
	quiet, _ := strconv.ParseBool(r.URL.Query().Get("quiet"))
	formatter, err := output.NewFormatter(format, output.FormatOptions{
		Quiet:      quiet,
		TopAuthors: s.cfg.TopAuthors,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("export exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}

	name := uploadName(r)
	text, err := parser.DecodeExport(name, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stats, res, analysisErr := analyzer.Summarize(text, s.parser)
	report := output.NewReport(stats, res, analysisErr, output.NewMetadata(name, text, s.cfg.Location(), started))

	logger.Info().
		Str("run_id", report.Metadata.RunID).
		Str("digest", report.Metadata.Digest).
		Int("lines", res.Lines).
		Int("messages", len(res.Messages)).
		AnErr("analysis", analysisErr).
		Msg("analyzed upload")

	s.dispatch(r.Context(), report, logger)

	if analysisErr != nil {
		if errors.Is(analysisErr, parser.ErrNoMessages) || errors.Is(analysisErr, analyzer.ErrNoTimestamps) {
			writeError(w, http.StatusUnprocessableEntity, analysisErr)
			return
		}
		writeError(w, http.StatusInternalServerError, analysisErr)
		return
	}

	if formatter.Name() == config.OutputJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	if err := formatter.Format(r.Context(), report, w); err != nil {
		logger.Error().Err(err).Msg("writing report")
	}
}

// dispatch fires configured webhooks in the background so the response is
// not held up by slow endpoints.
func (s *Server) dispatch(ctx context.Context, report *output.Report, logger zerolog.Logger) {
	if len(s.cfg.Webhooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		for _, d := range s.webhooks.Dispatch(ctx, s.cfg.Webhooks, report) {
			if d.Response.Success() {
				logger.Info().Str("webhook", d.Name).Int("status", d.Response.StatusCode).
					Dur("took", d.Response.Duration).Msg("webhook sent")
			} else {
				logger.Warn().Str("webhook", d.Name).Err(d.Response.Error).Msg("webhook failed")
			}
		}
	}()
}

// uploadName picks a file name whose extension tells DecodeExport how to
// read the body.
func uploadName(r *http.Request) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/zip", "application/x-zip-compressed":
		return "upload.zip"
	case "application/gzip", "application/x-gzip":
		return "upload.txt.gz"
	default:
		return "upload.txt"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLogger logs one line per request through logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
