package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEmbed_ReturnsVector(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 1 {
			t.Fatalf("expected a single input, got %v", req.Input)
		}
		resp := embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float64{0.1, 0.2, 0.3}}}}
		b, _ := json.Marshal(resp)
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "key", "model", 10*time.Second)
	vec, err := c.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbedQuery_PrependsInstructionPrefix(t *testing.T) {
	var gotInput string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInput = req.Input[0]
		b, _ := json.Marshal(embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float64{1}}}})
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "key", "model", 10*time.Second)
	if _, err := c.EmbedQuery(context.Background(), "find me docs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotInput, queryInstruction) {
		t.Fatalf("expected query prefix, got %q", gotInput)
	}
}

func TestEmbed_RecoversFromInputTooLargeBySplittingAndAveraging(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"input (5000 tokens) is too large for this model"}}`))
			return
		}
		b, _ := json.Marshal(embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float64{2, 4}}}})
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "key", "model", 10*time.Second)
	longText := strings.Repeat("word ", 1000)
	vec, err := c.Embed(context.Background(), longText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 2 || vec[1] != 4 {
		t.Fatalf("unexpected averaged vector: %v", vec)
	}
	if calls < 3 {
		t.Fatalf("expected at least 3 calls (1 failure + 2 halves), got %d", calls)
	}
}

func TestEmbedChunks_SendsContextPrefixToModel(t *testing.T) {
	var gotInputs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInputs = append(gotInputs, req.Input[0])
		b, _ := json.Marshal(embeddingResponse{Data: []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}{{Embedding: []float64{1}}}})
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "key", "model", 10*time.Second)
	vecs, err := c.EmbedChunks(context.Background(), []string{"chunk one", "chunk two"}, "doc summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	for _, in := range gotInputs {
		if !strings.HasPrefix(in, "doc summary\n\n") {
			t.Fatalf("expected the context prefix to be sent to the model, got %q", in)
		}
	}
}
