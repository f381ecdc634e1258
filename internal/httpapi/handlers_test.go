package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aborroy/alfresco-lake-bridge/internal/discovery"
	"github.com/aborroy/alfresco-lake-bridge/internal/httpauth"
	"github.com/aborroy/alfresco-lake-bridge/internal/jobs"
	"github.com/aborroy/alfresco-lake-bridge/internal/queue"
	"github.com/aborroy/alfresco-lake-bridge/internal/rag/prompt"
	"github.com/aborroy/alfresco-lake-bridge/internal/retrieval"
)

type fakeSyncer struct{ batchCalls, configuredCalls int }

func (f *fakeSyncer) RunBatch(ctx context.Context, jobID string, roots []discovery.RootConfig, exclusion discovery.ExclusionConfig) {
	f.batchCalls++
}
func (f *fakeSyncer) RunConfigured(ctx context.Context, jobID string) { f.configuredCalls++ }

type fakeQueueStats struct{ cleared bool }

func (f *fakeQueueStats) Snapshot() queue.Counters { return queue.Counters{Pending: 1, Completed: 2} }
func (f *fakeQueueStats) Clear()                   { f.cleared = true }

type fakeSearch struct{ called bool }

func (f *fakeSearch) Search(ctx context.Context, caller retrieval.Caller, req retrieval.Request) (retrieval.Result, error) {
	f.called = true
	return retrieval.Result{Model: "m1"}, nil
}

type fakeRAG struct{ called bool }

func (f *fakeRAG) Answer(ctx context.Context, caller retrieval.Caller, req prompt.Request) (prompt.Response, error) {
	f.called = true
	return prompt.Response{Answer: "42"}, nil
}

type fakeRepo struct{}

func (fakeRepo) RepositoryID(ctx context.Context) (string, error) { return "repo-1", nil }

func newTestServer() (*Server, *fakeSyncer, *fakeQueueStats, *fakeSearch, *fakeRAG) {
	syncer := &fakeSyncer{}
	q := &fakeQueueStats{}
	search := &fakeSearch{}
	rag := &fakeRAG{}
	registry := jobs.New()
	return NewServer(syncer, registry, q, search, rag, fakeRepo{}), syncer, q, search, rag
}

func withPrincipal(req *http.Request) *http.Request {
	ctx := httpauth.WithPrincipal(req.Context(), httpauth.Principal{Username: "alice"})
	return req.WithContext(ctx)
}

func TestHandleSyncBatch_StartsJobAndReturnsRunningStatus(t *testing.T) {
	srv, syncer, _, _, _ := newTestServer()
	body, _ := json.Marshal(syncBatchRequest{Folders: []string{"root-1"}, Recursive: true})
	req := httptest.NewRequest(http.MethodPost, "/api/sync/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var job jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Equal(t, jobs.StatusRunning, job.Status)
	_ = syncer
}

func TestHandleSyncStatus_ReportsQueueCounters(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status syncStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, int64(1), status.Queue.Pending)
	require.Equal(t, int64(2), status.Queue.Completed)
}

func TestHandleSyncStatusByID_UnknownJobReturns404(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status/missing-job", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSyncQueueClear_ReturnsClearedStatus(t *testing.T) {
	srv, _, q, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/api/sync/queue", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, q.cleared)
}

func TestHandleSemanticSearch_EmptyQueryReturns400(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	body, _ := json.Marshal(semanticSearchRequest{Query: ""})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/search/semantic", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSemanticSearch_UnauthenticatedReturns401(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	body, _ := json.Marshal(semanticSearchRequest{Query: "budget"})
	req := httptest.NewRequest(http.MethodPost, "/api/search/semantic", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSemanticSearch_AuthenticatedDelegatesToSearcher(t *testing.T) {
	srv, _, _, search, _ := newTestServer()
	body, _ := json.Marshal(semanticSearchRequest{Query: "budget"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/search/semantic", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, search.called)
}

func TestHandleRAGPrompt_EmptyQuestionReturns400(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	body, _ := json.Marshal(ragPromptRequest{Question: ""})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/rag/prompt", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRAGPrompt_DelegatesToOrchestrator(t *testing.T) {
	srv, _, _, _, rag := newTestServer()
	body, _ := json.Marshal(ragPromptRequest{Question: "What is the budget?"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/rag/prompt", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, rag.called)
}

func TestHandleActuatorHealth_IsPublic(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/actuator/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

type stubHealth struct{ err error }

func (s stubHealth) Ping(ctx context.Context) error { return s.err }

func TestHandleActuatorHealth_ReportsDegradedWhenAComponentIsDown(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	srv.WithHealthCheckers(stubHealth{}, stubHealth{err: errUnauthenticated}, stubHealth{})
	req := httptest.NewRequest(http.MethodGet, "/actuator/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health actuatorHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "DEGRADED", health.Status)
	require.Equal(t, "DOWN", health.Components["lake"].Status)
	require.Equal(t, "UP", health.Components["source"].Status)
}

func TestHandleSemanticSearchHealth_ReportsDegradedWhenLakeIsDown(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	srv.WithHealthCheckers(stubHealth{}, stubHealth{err: errUnauthenticated}, stubHealth{})
	req := httptest.NewRequest(http.MethodGet, "/api/search/semantic/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health actuatorHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "DEGRADED", health.Status)
	require.Equal(t, "DOWN", health.Components["lake"].Status)
	_, hasExtraction := health.Components["extraction"]
	require.False(t, hasExtraction)
}

func TestHandleRAGHealth_ReportsUpWhenLakeAndSourceAreHealthy(t *testing.T) {
	srv, _, _, _, _ := newTestServer()
	srv.WithHealthCheckers(stubHealth{}, stubHealth{}, stubHealth{})
	req := httptest.NewRequest(http.MethodGet, "/api/rag/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health actuatorHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "UP", health.Status)
	require.Equal(t, "UP", health.Components["lake"].Status)
	require.Equal(t, "UP", health.Components["source"].Status)
}
