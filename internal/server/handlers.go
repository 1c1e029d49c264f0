package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/webrag/internal/fetch"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/storage"
	"github.com/hyperjump/webrag/internal/websearch"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("ingest request", zap.Int("urls", len(req.URLs)), zap.String("scope", req.Scope))
	resp, err := s.indexer.Ingest(r.Context(), &req)
	if err != nil {
		s.respondErr(w, "ingest", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.String("scope", req.Scope))
	resp, err := s.engine.Query(r.Context(), &req)
	if err != nil {
		s.respondErr(w, "query", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("ask request", zap.String("query", req.Query), zap.String("scope", req.Scope))
	resp, err := s.engine.Ask(r.Context(), &req)
	if err != nil {
		s.respondErr(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	n := models.DefaultMaxSearchResults
	if req.MaxResults != nil {
		n = *req.MaxResults
	}
	urls, err := s.engine.SearchURLs(r.Context(), req.Query, n)
	if err != nil {
		s.respondErr(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"urls": urls})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	colls, err := s.store.Collections(r.Context())
	if err != nil {
		s.respondErr(w, "collections", err)
		return
	}
	resp := map[string]interface{}{"collections": colls}
	diskBytes, err := storage.DiskUsageBytes(storage.DatabaseFiles(s.config.Storage.DatabasePath())...)
	if err == nil {
		resp["disk_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into v, answering 400 when it is malformed.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery),
		errors.Is(err, models.ErrNoURLs),
		errors.Is(err, fetch.ErrInvalidURL),
		errors.Is(err, fetch.ErrDomainNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, websearch.ErrNoProvider),
		errors.Is(err, websearch.ErrExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
