package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTransformToText_UploadsMultipartAndDecodesUTF8(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timeout") != "5000" {
			t.Errorf("expected timeout=5000, got %q", r.URL.Query().Get("timeout"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		if r.FormValue("sourceMimetype") != "application/pdf" {
			t.Errorf("unexpected sourceMimetype: %q", r.FormValue("sourceMimetype"))
		}
		if r.FormValue("targetMimetype") != "text/plain" {
			t.Errorf("unexpected targetMimetype: %q", r.FormValue("targetMimetype"))
		}
		w.Write([]byte("extracted text"))
	}))
	defer ts.Close()

	c := New(ts.URL, 30*time.Second)
	text, err := c.TransformToText(context.Background(), strings.NewReader("pdf bytes"), "application/pdf", 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "extracted text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestIsSupported_CachesEngineConfig(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"transformers":[{"sourceMimetype":"application/pdf","targetMimetype":["text/plain"]}]}`))
	}))
	defer ts.Close()

	c := New(ts.URL, 30*time.Second)
	for i := 0; i < 3; i++ {
		if !c.IsSupported(context.Background(), "application/pdf", "text/plain") {
			t.Fatal("expected transform to be reported as supported")
		}
	}
	if calls != 1 {
		t.Fatalf("expected engine config to be fetched once within the TTL window, got %d", calls)
	}
	if c.IsSupported(context.Background(), "application/pdf", "application/json") {
		t.Fatal("expected an unlisted target to be unsupported")
	}
}

func TestIsSupported_FailsOpenOnLookupError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(ts.URL, 30*time.Second)
	if !c.IsSupported(context.Background(), "application/pdf", "text/plain") {
		t.Fatal("expected fail-open behavior when engine config lookup fails")
	}
}
