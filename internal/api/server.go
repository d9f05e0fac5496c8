// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ory/herodot"

	apperrors "campusquery/internal/errors"
	"campusquery/internal/models"
)

// QueryService is the slice of the pipeline the HTTP layer drives.
type QueryService interface {
	ProcessQuery(ctx context.Context, query string) (*models.AnalysisResponse, error)
	Followup(ctx context.Context, req models.FollowupRequest) (string, error)
	Status() models.StatusResponse
	Rebuild() error
	LastResult() (*models.AnalysisResponse, bool)
}

var errNotReady = &herodot.DefaultError{
	CodeField:   http.StatusServiceUnavailable,
	StatusField: http.StatusText(http.StatusServiceUnavailable),
	ErrorField:  "System not ready",
}

var errRebuildInProgress = &herodot.DefaultError{
	CodeField:   http.StatusConflict,
	StatusField: http.StatusText(http.StatusConflict),
	ErrorField:  "Index rebuild already in progress",
}

// Server routes HTTP requests to the query pipeline.
type Server struct {
	mux      *http.ServeMux
	pipeline QueryService
	docsDir  string
	writer   *herodot.JSONWriter
}

// NewServer creates a server over the given pipeline. docsDir is the
// directory source documents are served from.
func NewServer(pipeline QueryService, docsDir string) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		pipeline: pipeline,
		docsDir:  docsDir,
		writer:   herodot.NewJSONWriter(nil),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.healthCheck)
	s.mux.HandleFunc("/api/status", s.status)
	s.mux.HandleFunc("/api/query", s.query)
	s.mux.HandleFunc("/api/rebuild", s.rebuild)
	s.mux.HandleFunc("/api/export", s.export)
	s.mux.HandleFunc("/api/followup", s.followup)
	s.mux.HandleFunc("/docs/", s.serveDocument)
}

// Handler returns the routed handler with logging middleware applied.
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.mux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	s.writer.Write(w, r, &models.HealthResponse{Status: "healthy"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	status := s.pipeline.Status()
	s.writer.Write(w, r, &status)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Empty query"))
		return
	}

	result, err := s.pipeline.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	s.writer.Write(w, r, result)
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotReady):
		s.writer.WriteError(w, r, errNotReady)
	case errors.Is(err, apperrors.ErrEmptyQuery):
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Empty query"))
	default:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason("Failed to process query"))
	}
}

func (s *Server) rebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	if err := s.pipeline.Rebuild(); err != nil {
		if errors.Is(err, apperrors.ErrRebuildInProgress) {
			s.writer.WriteError(w, r, errRebuildInProgress)
			return
		}
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason("Failed to start rebuild"))
		return
	}

	s.writer.WriteCode(w, r, http.StatusAccepted, &models.RebuildResponse{Message: "Index rebuild started"})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	result, ok := s.pipeline.LastResult()
	if !ok {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("No result to export"))
		return
	}

	export := &models.ExportResponse{
		Timestamp:      time.Now().Format(time.RFC3339),
		Query:          result.Query,
		Answer:         result.Answer,
		DetailedAnswer: result.DetailedAnswer,
		Justification:  result.Justification,
		Sources:        result.DocumentReferences,
	}
	s.writer.Write(w, r, export)
}

func (s *Server) followup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.FollowupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	req.SelectedText = strings.TrimSpace(req.SelectedText)
	if req.SelectedText == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("No selected text provided"))
		return
	}

	question, err := s.pipeline.Followup(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotReady) {
			s.writer.WriteError(w, r, errNotReady)
			return
		}
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason("Failed to generate follow-up question"))
		return
	}

	s.writer.Write(w, r, &models.FollowupResponse{
		Question:     question,
		SelectedText: req.SelectedText,
		DocumentName: req.DocumentName,
	})
}

// serveDocument serves raw source files so the front-end can display them.
// Path traversal is rejected before the filesystem is touched.
func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/docs/")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		log.Printf("Blocked potentially malicious file request: %q", name)
		http.NotFound(w, r)
		return
	}

	docsDir, err := filepath.Abs(s.docsDir)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(docsDir, filepath.Clean(name))
	if !strings.HasPrefix(path, docsDir+string(os.PathSeparator)) {
		log.Printf("Blocked potentially malicious file request: %q", name)
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="`+filepath.Base(name)+`"`)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}

	http.ServeFile(w, r, path)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.Method, r.RequestURI, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
