package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/arturlm/jusbr/internal/database"
	"github.com/arturlm/jusbr/internal/model"
	"github.com/arturlm/jusbr/internal/orchestrator"
)

// Server handles the query HTTP API.
type Server struct {
	store  *database.Store
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewServer wires the API against the store and orchestrator.
func NewServer(store *database.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, orch: orch, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/queries", s.createQuery)
	r.Get("/queries/{id}", s.getQuery)
	r.Get("/queries/{id}/tasks", s.listTasks)
	r.Get("/queries/{id}/processes", s.listProcesses)
	return r
}

// logRequests logs one line per request through the masking logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type createQueryRequest struct {
	Term  string `json:"term"`
	Force bool   `json:"force"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) createQuery(w http.ResponseWriter, r *http.Request) {
	var req createQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := model.ClassifyTerm(req.Term); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Repeat searches attach to the existing query so completed
	// tribunals are skipped instead of recrawled.
	ctx := r.Context()
	query, err := s.store.FindQueryByTerm(ctx, req.Term)
	if err != nil {
		s.internalError(w, "find query", err)
		return
	}
	if query == nil {
		query = &model.Query{
			ID:         uuid.NewString(),
			SearchTerm: req.Term,
			Status:     model.QueryQueued,
		}
		if err := s.store.CreateQuery(ctx, query); err != nil {
			s.internalError(w, "create query", err)
			return
		}
	}

	n, err := s.orch.EnqueueCrawlsForQuery(ctx, query.ID, req.Term, req.Force)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTerm) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, "enqueue crawls", err)
		return
	}
	status := http.StatusAccepted
	if n == 0 {
		// Everything was already crawled and the orchestrator finalized
		// the query; there is nothing to wait for.
		status = http.StatusOK
	}

	stored, err := s.store.GetQuery(ctx, query.ID)
	if err != nil || stored == nil {
		s.internalError(w, "read back query", err)
		return
	}
	s.writeJSON(w, status, stored)
}

func (s *Server) getQuery(w http.ResponseWriter, r *http.Request) {
	query, ok := s.lookupQuery(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, query)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	query, ok := s.lookupQuery(w, r)
	if !ok {
		return
	}
	tasks, err := s.store.ListCrawlTasks(r.Context(), query.ID)
	if err != nil {
		s.internalError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.CrawlTask{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) listProcesses(w http.ResponseWriter, r *http.Request) {
	query, ok := s.lookupQuery(w, r)
	if !ok {
		return
	}
	records, err := s.store.ListProcessRecords(r.Context(), query.ID)
	if err != nil {
		s.internalError(w, "list processes", err)
		return
	}
	if records == nil {
		records = []database.ProcessRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) lookupQuery(w http.ResponseWriter, r *http.Request) (*model.Query, bool) {
	id := chi.URLParam(r, "id")
	query, err := s.store.GetQuery(r.Context(), id)
	if err != nil {
		s.internalError(w, "get query", err)
		return nil, false
	}
	if query == nil {
		s.writeError(w, http.StatusNotFound, "query not found")
		return nil, false
	}
	return query, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
