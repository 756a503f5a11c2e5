// Package server exposes the ingestion pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/ingestkit/filetype"
	"github.com/hazyhaar/ingestkit/ingest"
)

// Server wraps the HTTP surface of an ingester.
type Server struct {
	ing    *ingest.Ingester
	logger *slog.Logger
	http   *http.Server
}

// New builds the server. addr is the listen address (":8080").
func New(ing *ingest.Ingester, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{ing: ing, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/filetypes", s.handleFileTypes)
		r.Post("/partition", s.handlePartition)
		r.Get("/stats", s.handleStats)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router (used by tests).
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fileTypeInfo struct {
	Name           string   `json:"name"`
	MimeType       string   `json:"mime_type"`
	AliasMimeTypes []string `json:"alias_mime_types,omitempty"`
	Extensions     []string `json:"extensions,omitempty"`
	Partitionable  bool     `json:"partitionable"`
	Shortname      string   `json:"shortname,omitempty"`
}

func (s *Server) handleFileTypes(w http.ResponseWriter, r *http.Request) {
	types := filetype.All()
	out := make([]fileTypeInfo, 0, len(types))
	for _, ft := range types {
		out = append(out, fileTypeInfo{
			Name:           ft.Name(),
			MimeType:       ft.MimeType(),
			AliasMimeTypes: ft.AliasMimeTypes(),
			Extensions:     ft.Extensions(),
			Partitionable:  ft.IsPartitionable(),
			Shortname:      ft.PartitionerShortname(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePartition accepts a multipart upload ("file" field), partitions
// it and returns the structured document. Nothing is persisted; this is
// the synchronous preview path.
func (s *Server) handlePartition(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if filetype.FromExtension(ext) == nil {
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Errorf("unrecognised extension %q", ext))
		return
	}

	tmp, err := os.CreateTemp("", "ingestkit-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	doc, err := s.ing.Pipeline().Partition(r.Context(), tmp.Name())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	doc.Path = header.Filename
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ing.Store().Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pending, err := s.ing.Queue().Len(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"documents": docs,
		"pending":   pending,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
