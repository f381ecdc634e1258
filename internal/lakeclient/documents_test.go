package lakeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
)

func TestCreateAtPath_EncodesSegmentsNotSlashes(t *testing.T) {
	var gotPath string
	c, lake, idp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := json.Marshal(Document{LakeID: "doc-1"})
		w.Write(b)
	})
	defer lake.Close()
	defer idp.Close()

	_, err := c.CreateAtPath(context.Background(), "/folder a/file b.txt", Document{PrimaryType: PrimaryTypeFile})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/api/documents/path/" + url.PathEscape("folder a") + "/" + url.PathEscape("file b.txt")
	if gotPath != want {
		t.Fatalf("expected path %q, got %q", want, gotPath)
	}
}

func TestExistsByPath_FalseOn404(t *testing.T) {
	c, lake, idp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer lake.Close()
	defer idp.Close()

	exists, err := c.ExistsByPath(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for a 404")
	}
}

func TestFindBySourceID_EscapesSingleQuotes(t *testing.T) {
	var gotQuery string
	c, lake, idp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		result := QueryResult{Documents: []Document{{LakeID: "doc-1"}}, Count: 1}
		b, _ := json.Marshal(result)
		w.Write(b)
	})
	defer lake.Close()
	defer idp.Close()

	doc, found, err := c.FindBySourceID(context.Background(), "node's-id", "repo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || doc.LakeID != "doc-1" {
		t.Fatalf("expected a matching document, got found=%v doc=%+v", found, doc)
	}
	if gotQuery == "" {
		t.Fatal("expected the HXQL query to be sent")
	}
}

func TestFindBySourceID_NotFoundWhenEmpty(t *testing.T) {
	c, lake, idp := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		result := QueryResult{Documents: nil, Count: 0}
		b, _ := json.Marshal(result)
		w.Write(b)
	})
	defer lake.Close()
	defer idp.Close()

	_, found, err := c.FindBySourceID(context.Background(), "nope", "repo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected found=false")
	}
}
