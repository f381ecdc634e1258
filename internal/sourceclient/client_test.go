package sourceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListAllChildren_PagesUntilShortPage(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		skip := r.URL.Query().Get("skipCount")
		entries := []map[string]any{}
		hasMore := skip == "0"
		count := 100
		if !hasMore {
			count = 1
		}
		for i := 0; i < count; i++ {
			entries = append(entries, map[string]any{"entry": map[string]any{"id": "n", "isFolder": false}})
		}
		resp := map[string]any{"list": map[string]any{
			"pagination": map[string]any{"hasMoreItems": hasMore},
			"entries":    entries,
		}}
		b, _ := json.Marshal(resp)
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "user", "pass")
	nodes, err := c.ListAllChildren(context.Background(), "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 101 {
		t.Fatalf("expected 101 nodes across two pages, got %d", len(nodes))
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 page requests, got %d", calls)
	}
}

func TestRepositoryID_MemoizesAfterFirstCall(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := map[string]any{"repository": map[string]any{"id": "repo-1"}}
		b, _ := json.Marshal(resp)
		w.Write(b)
	}))
	defer ts.Close()

	c := New(ts.URL, "user", "pass")
	for i := 0; i < 5; i++ {
		id, err := c.RepositoryID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "repo-1" {
			t.Fatalf("unexpected repository id: %v", id)
		}
	}
	if calls != 1 {
		t.Fatalf("expected discovery endpoint to be called exactly once, got %d", calls)
	}
}

func TestExtractReadAuthorities(t *testing.T) {
	node := Node{
		Permissions: Permissions{
			Inherited: true,
			Inherited_: []Authority{
				{AuthorityID: "GROUP_everyone", Name: "Consumer", AccessStatus: "ALLOWED"},
				{AuthorityID: "bob", Name: "Manager", AccessStatus: "DENIED"},
			},
			Locally: []Authority{
				{AuthorityID: "alice", Name: "Collaborator", AccessStatus: "ALLOWED"},
				{AuthorityID: "eve", Name: "Consumer", AccessStatus: "ALLOWED"},
			},
		},
	}
	got := ExtractReadAuthorities(node)
	want := map[string]bool{"GROUP_everyone": true, "alice": true, "eve": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d authorities, got %d (%v)", len(want), len(got), got)
	}
	for _, a := range got {
		if !want[a] {
			t.Errorf("unexpected authority %q in result", a)
		}
	}
}

func TestExtractReadAuthorities_InheritanceDisabledIgnoresInherited(t *testing.T) {
	node := Node{
		Permissions: Permissions{
			Inherited: false,
			Inherited_: []Authority{
				{AuthorityID: "GROUP_everyone", Name: "Consumer", AccessStatus: "ALLOWED"},
			},
			Locally: []Authority{
				{AuthorityID: "alice", Name: "Consumer", AccessStatus: "ALLOWED"},
			},
		},
	}
	got := ExtractReadAuthorities(node)
	if len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected only alice, got %v", got)
	}
}

func TestStreamToTempFile_SanitizesNameAndWritesContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer ts.Close()

	c := New(ts.URL, "user", "pass")
	path, err := c.StreamToTempFile(context.Background(), "123", `a/b:c*d?"e<f>g|h`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(path)
	if !strings.HasPrefix(filepath.Base(path), "source-node-123-a_b_c_d_e_f_g_h-") {
		t.Fatalf("unexpected temp file name: %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestStreamToTempFile_ForbiddenIsPermissionDenied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := New(ts.URL, "user", "pass")
	if _, err := c.StreamToTempFile(context.Background(), "123", "file.txt"); err == nil {
		t.Fatal("expected an error for 403 response")
	}
}
