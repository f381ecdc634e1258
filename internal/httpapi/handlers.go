package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/aborroy/alfresco-lake-bridge/internal/discovery"
	"github.com/aborroy/alfresco-lake-bridge/internal/httpauth"
	"github.com/aborroy/alfresco-lake-bridge/internal/jobs"
	"github.com/aborroy/alfresco-lake-bridge/internal/rag/prompt"
	"github.com/aborroy/alfresco-lake-bridge/internal/retrieval"
)

var errUnauthenticated = errors.New("no authenticated principal on request")

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// syncBatchRequest is the body of POST /api/sync/batch.
type syncBatchRequest struct {
	Folders    []string `json:"folders"`
	Recursive  bool     `json:"recursive"`
	Types      []string `json:"types"`
	MimeTypes  []string `json:"mimeTypes"`
}

func (s *Server) handleSyncBatch(w http.ResponseWriter, r *http.Request) {
	var body syncBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	roots := make([]discovery.RootConfig, 0, len(body.Folders))
	for _, f := range body.Folders {
		roots = append(roots, discovery.RootConfig{
			FolderID: f, Recursive: body.Recursive, Types: body.Types, MimeTypes: body.MimeTypes,
		})
	}

	jobID := uuid.NewString()
	s.jobs.Start(jobID)
	go s.sync.RunBatch(r.Context(), jobID, roots, discovery.ExclusionConfig{})

	job, _ := s.jobs.Get(jobID)
	respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleSyncConfigured(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.NewString()
	s.jobs.Start(jobID)
	go s.sync.RunConfigured(r.Context(), jobID)

	job, _ := s.jobs.Get(jobID)
	respondJSON(w, http.StatusAccepted, job)
}

type syncStatusResponse struct {
	Jobs  []jobs.Job    `json:"jobs"`
	Queue queueStatus   `json:"queue"`
}

type queueStatus struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	QueueSize int   `json:"queueSize"`
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.queue.Snapshot()
	respondJSON(w, http.StatusOK, syncStatusResponse{
		Jobs: s.jobs.List(),
		Queue: queueStatus{
			Pending: snap.Pending, Completed: snap.Completed, Failed: snap.Failed, QueueSize: snap.QueueSize,
		},
	})
}

func (s *Server) handleSyncStatusByID(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleSyncQueueClear(w http.ResponseWriter, r *http.Request) {
	s.queue.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type semanticSearchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"topK"`
	Filter        string  `json:"filter"`
	EmbeddingType string  `json:"embeddingType"`
	MinScore      float64 `json:"minScore"`
}

func (s *Server) callerFromRequest(r *http.Request) (retrieval.Caller, bool) {
	principal, ok := httpauth.CurrentPrincipal(r.Context())
	if !ok {
		return retrieval.Caller{}, false
	}
	repoID, err := s.repo.RepositoryID(r.Context())
	if err != nil {
		return retrieval.Caller{}, false
	}
	return retrieval.Caller{Username: principal.Username, SourceRepositoryID: repoID}, true
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var body semanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.Query == "" {
		respondJSON(w, http.StatusBadRequest, retrieval.Result{})
		return
	}

	caller, ok := s.callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	result, err := s.search.Search(r.Context(), caller, retrieval.Request{
		Query: body.Query, TopK: body.TopK, Filter: body.Filter,
		EmbeddingType: body.EmbeddingType, MinScore: body.MinScore,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type ragPromptRequest struct {
	Question       string  `json:"question"`
	TopK           int     `json:"topK"`
	MinScore       float64 `json:"minScore"`
	Filter         string  `json:"filter"`
	EmbeddingType  string  `json:"embeddingType"`
	SystemPrompt   string  `json:"systemPrompt"`
	IncludeContext bool    `json:"includeContext"`
}

func (s *Server) handleRAGPrompt(w http.ResponseWriter, r *http.Request) {
	var body ragPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.Question == "" {
		respondJSON(w, http.StatusBadRequest, prompt.Response{})
		return
	}

	caller, ok := s.callerFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	resp, err := s.rag.Answer(r.Context(), caller, prompt.Request{
		Question: body.Question, TopK: body.TopK, MinScore: body.MinScore,
		Filter: body.Filter, EmbeddingType: body.EmbeddingType,
		SystemPrompt: body.SystemPrompt, IncludeContext: body.IncludeContext,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleSemanticSearchHealth reports a composite status over the
// collaborators semantic search actually depends on: the lake's vector
// search endpoint.
func (s *Server) handleSemanticSearchHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.composeHealth(r.Context(), map[string]HealthChecker{
		"lake": s.lakeHealth,
	}))
}

// handleRAGHealth reports a composite status over the collaborators RAG
// depends on: retrieval's lake search plus the source repository ACL
// lookups retrieval's filter construction relies on.
func (s *Server) handleRAGHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.composeHealth(r.Context(), map[string]HealthChecker{
		"lake":   s.lakeHealth,
		"source": s.sourceHealth,
	}))
}

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type actuatorHealthResponse struct {
	Status     string                      `json:"status"`
	Components map[string]componentHealth `json:"components"`
}

func pingComponent(ctx context.Context, checker HealthChecker) componentHealth {
	if checker == nil {
		return componentHealth{Status: "UNKNOWN"}
	}
	if err := checker.Ping(ctx); err != nil {
		return componentHealth{Status: "DOWN", Error: err.Error()}
	}
	return componentHealth{Status: "UP"}
}

// composeHealth pings every named checker and rolls the results up into a
// single DEGRADED status if any of them report DOWN.
func (s *Server) composeHealth(ctx context.Context, checkers map[string]HealthChecker) actuatorHealthResponse {
	components := make(map[string]componentHealth, len(checkers))
	overall := "UP"
	for name, checker := range checkers {
		c := pingComponent(ctx, checker)
		components[name] = c
		if c.Status == "DOWN" {
			overall = "DEGRADED"
		}
	}
	return actuatorHealthResponse{Status: overall, Components: components}
}

func (s *Server) handleActuatorHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.composeHealth(r.Context(), map[string]HealthChecker{
		"source":     s.sourceHealth,
		"lake":       s.lakeHealth,
		"extraction": s.extractionHealth,
	}))
}

func (s *Server) handleActuatorInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"app": "alfresco-lake-bridge"})
}
