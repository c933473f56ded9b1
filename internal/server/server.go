// Package server implements the HTTP file store that cv pushes to and pulls
// from.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"cv-go/internal/config"
	"cv-go/internal/cv"
	"cv-go/internal/remote"
)

// Server serves files stored under a root directory. File routes require the
// pre-shared api key in the configured header.
type Server struct {
	store      *remote.FileSystemRemote
	headerName string
	apiKey     string
	logger     *zap.Logger
	metrics    *Metrics
}

// New creates a server for cfg, creating the storage root if needed.
func New(cfg *config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	store, err := remote.NewFileSystemRemote(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:      store,
		headerName: cfg.HeaderName,
		apiKey:     cfg.APIKey,
		logger:     logger,
		metrics:    NewMetrics(),
	}, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.Handle("GET /files", s.requireKey(http.HandlerFunc(s.handleList)))
	mux.Handle("GET /files/{path...}", s.requireKey(http.HandlerFunc(s.handleGet)))
	mux.Handle("PUT /files/{path...}", s.requireKey(http.HandlerFunc(s.handlePut)))
	mux.Handle("DELETE /files/{path...}", s.requireKey(http.HandlerFunc(s.handleDelete)))

	return s.metrics.Middleware(loggingMiddleware(s.logger, mux))
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(s.headerName)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
			s.metrics.authFailures.Inc()
			s.sendError(w, http.StatusUnauthorized, "missing or invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("listing files failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "listing files failed")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

// fileKey extracts and validates the file path of the request.
func (s *Server) fileKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("path")
	if err := remote.ValidateKey(key); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := s.fileKey(w, r)
	if !ok {
		return
	}

	exists, err := s.store.Exists(key)
	if err != nil {
		s.logger.Error("stat failed", zap.String("path", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "reading file failed")
		return
	}
	if !exists {
		s.sendError(w, http.StatusNotFound, "file not found: "+key)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	cw := &countingWriter{w: w}
	if err := s.store.Get(r.Context(), key, cw); err != nil {
		if errors.Is(err, cv.ErrNotFound) && cw.n == 0 {
			s.sendError(w, http.StatusNotFound, "file not found: "+key)
			return
		}
		s.logger.Error("reading file failed", zap.String("path", key), zap.Error(err))
		if cw.n == 0 {
			s.sendError(w, http.StatusInternalServerError, "reading file failed")
		}
		return
	}
	s.metrics.bytesDownloaded.Add(float64(cw.n))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := s.fileKey(w, r)
	if !ok {
		return
	}

	existed, err := s.store.Exists(key)
	if err != nil {
		s.logger.Error("stat failed", zap.String("path", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "storing file failed")
		return
	}

	if err := s.store.Put(r.Context(), key, r.Body, r.ContentLength); err != nil {
		s.logger.Error("storing file failed", zap.String("path", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "storing file failed")
		return
	}
	if r.ContentLength > 0 {
		s.metrics.bytesUploaded.Add(float64(r.ContentLength))
	}
	s.logger.Debug("file stored", zap.String("path", key), zap.Int64("size", r.ContentLength))

	if existed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := s.fileKey(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, cv.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "file not found: "+key)
			return
		}
		s.logger.Error("deleting file failed", zap.String("path", key), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "deleting file failed")
		return
	}
	s.logger.Debug("file deleted", zap.String("path", key))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
