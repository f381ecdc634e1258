// Package httpapi exposes the bridge's REST surface: batch sync triggers,
// job/queue status, semantic search, RAG prompting, and health endpoints.
package httpapi

import (
	"context"
	"net/http"

	"github.com/aborroy/alfresco-lake-bridge/internal/discovery"
	"github.com/aborroy/alfresco-lake-bridge/internal/jobs"
	"github.com/aborroy/alfresco-lake-bridge/internal/queue"
	"github.com/aborroy/alfresco-lake-bridge/internal/rag/prompt"
	"github.com/aborroy/alfresco-lake-bridge/internal/retrieval"
)

// Syncer starts batch ingestion jobs, registering them in the job registry
// and running discovery+ingestion asynchronously.
type Syncer interface {
	RunBatch(ctx context.Context, jobID string, roots []discovery.RootConfig, exclusion discovery.ExclusionConfig)
	RunConfigured(ctx context.Context, jobID string)
}

// JobRegistry is the subset of jobs.Registry the API reads.
type JobRegistry interface {
	Start(id string)
	Get(id string) (jobs.Job, bool)
	List() []jobs.Job
}

// QueueStats is the subset of queue.Queue the API reads/clears.
type QueueStats interface {
	Snapshot() queue.Counters
	Clear()
}

// Searcher runs permission-scoped semantic search.
type Searcher interface {
	Search(ctx context.Context, caller retrieval.Caller, req retrieval.Request) (retrieval.Result, error)
}

// Prompter runs the RAG orchestration.
type Prompter interface {
	Answer(ctx context.Context, caller retrieval.Caller, req prompt.Request) (prompt.Response, error)
}

// RepositoryResolver resolves the source repository id used to scope
// permission filters.
type RepositoryResolver interface {
	RepositoryID(ctx context.Context) (string, error)
}

// HealthChecker reports whether a downstream collaborator is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server exposes the bridge's HTTP API over the wired components above.
type Server struct {
	sync  Syncer
	jobs  JobRegistry
	queue QueueStats
	search Searcher
	rag    Prompter
	repo   RepositoryResolver

	sourceHealth    HealthChecker
	lakeHealth      HealthChecker
	extractionHealth HealthChecker

	mux *http.ServeMux
}

// NewServer wires a Server and registers its routes.
func NewServer(sync Syncer, jobRegistry JobRegistry, q QueueStats, search Searcher, rag Prompter, repo RepositoryResolver) *Server {
	s := &Server{sync: sync, jobs: jobRegistry, queue: q, search: search, rag: rag, repo: repo, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// WithHealthCheckers attaches the downstream reachability checks the
// actuator health endpoint reports on, returning the same Server for
// chaining.
func (s *Server) WithHealthCheckers(source, lake, extraction HealthChecker) *Server {
	s.sourceHealth, s.lakeHealth, s.extractionHealth = source, lake, extraction
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/sync/batch", s.handleSyncBatch)
	s.mux.HandleFunc("POST /api/sync/configured", s.handleSyncConfigured)
	s.mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)
	s.mux.HandleFunc("GET /api/sync/status/{jobId}", s.handleSyncStatusByID)
	s.mux.HandleFunc("DELETE /api/sync/queue", s.handleSyncQueueClear)

	s.mux.HandleFunc("POST /api/search/semantic", s.handleSemanticSearch)
	s.mux.HandleFunc("GET /api/search/semantic/health", s.handleSemanticSearchHealth)

	s.mux.HandleFunc("POST /api/rag/prompt", s.handleRAGPrompt)
	s.mux.HandleFunc("GET /api/rag/health", s.handleRAGHealth)

	s.mux.HandleFunc("GET /actuator/health", s.handleActuatorHealth)
	s.mux.HandleFunc("GET /actuator/info", s.handleActuatorInfo)
}
