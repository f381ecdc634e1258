package discovery

import (
	"context"
	"testing"

	"github.com/aborroy/alfresco-lake-bridge/internal/sourceclient"
)

type fakeSource struct {
	children map[string][]sourceclient.Node
}

func (f *fakeSource) ListAllChildren(ctx context.Context, folderID string) ([]sourceclient.Node, error) {
	return f.children[folderID], nil
}

func TestStream_FiltersByTypeMimeAspectAndPath(t *testing.T) {
	src := &fakeSource{children: map[string][]sourceclient.Node{
		"root": {
			{ID: "1", NodeType: "cm:content", MimeType: "application/pdf", Path: sourceclient.Path{Name: "/a/doc1.pdf"}},
			{ID: "2", NodeType: "cm:content", MimeType: "text/plain", Path: sourceclient.Path{Name: "/a/doc2.txt"}},
			{ID: "3", NodeType: "cm:content", MimeType: "application/pdf", AspectNames: []string{"cm:generalclassifiable"}, Path: sourceclient.Path{Name: "/a/doc3.pdf"}},
			{ID: "4", NodeType: "cm:content", MimeType: "application/pdf", Path: sourceclient.Path{Name: "/excluded/doc4.pdf"}},
			{ID: "5", IsFolder: true},
		},
	}}

	w := New(src, []RootConfig{{FolderID: "root", Recursive: true, MimeTypes: []string{"application/pdf"}}},
		ExclusionConfig{Aspects: []string{"cm:generalclassifiable"}, Paths: []string{"/excluded/*"}})

	var got []string
	err := w.Stream(context.Background(), func(n sourceclient.Node) bool {
		got = append(got, n.ID)
		return true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("expected only node 1 to pass filters, got %v", got)
	}
}

func TestStream_RecursesIntoSubfoldersWhenConfigured(t *testing.T) {
	src := &fakeSource{children: map[string][]sourceclient.Node{
		"root": {{ID: "sub", IsFolder: true}},
		"sub":  {{ID: "leaf", NodeType: "cm:content"}},
	}}

	w := New(src, []RootConfig{{FolderID: "root", Recursive: true}}, ExclusionConfig{})
	var got []string
	_ = w.Stream(context.Background(), func(n sourceclient.Node) bool {
		got = append(got, n.ID)
		return true
	})
	if len(got) != 1 || got[0] != "leaf" {
		t.Fatalf("expected to discover the leaf via recursion, got %v", got)
	}
}

func TestStream_SkipsSubfoldersWhenNotRecursive(t *testing.T) {
	src := &fakeSource{children: map[string][]sourceclient.Node{
		"root": {{ID: "sub", IsFolder: true}},
		"sub":  {{ID: "leaf", NodeType: "cm:content"}},
	}}

	w := New(src, []RootConfig{{FolderID: "root", Recursive: false}}, ExclusionConfig{})
	var got []string
	_ = w.Stream(context.Background(), func(n sourceclient.Node) bool {
		got = append(got, n.ID)
		return true
	})
	if len(got) != 0 {
		t.Fatalf("expected no documents when recursion is disabled, got %v", got)
	}
}

func TestStream_StopsWhenYieldReturnsFalse(t *testing.T) {
	src := &fakeSource{children: map[string][]sourceclient.Node{
		"root": {{ID: "1", NodeType: "cm:content"}, {ID: "2", NodeType: "cm:content"}},
	}}
	w := New(src, []RootConfig{{FolderID: "root"}}, ExclusionConfig{})
	count := 0
	_ = w.Stream(context.Background(), func(n sourceclient.Node) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("expected traversal to stop after first yield, got %d calls", count)
	}
}
