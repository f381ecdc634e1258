package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	cfgContent := `
sources:
  - folder: "root-1"
    recursive: true
    mimeTypes: ["application/pdf"]
lake:
  url: "https://lake.example.com"
  repositoryId: "r1"
  targetPath: "/Sites/ingested"
source:
  url: "https://source.example.com"
`
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Folder != "root-1" {
		t.Fatalf("unexpected sources: %+v", cfg.Sources)
	}
	if cfg.Lake.RepositoryID != "r1" {
		t.Fatalf("unexpected repository id: %v", cfg.Lake.RepositoryID)
	}
	// Defaults applied.
	if cfg.Transform.WorkerThreads != 4 {
		t.Errorf("expected default worker threads 4, got %d", cfg.Transform.WorkerThreads)
	}
	if cfg.Embedding.ChunkSize != 1000 {
		t.Errorf("expected default chunk size 1000, got %d", cfg.Embedding.ChunkSize)
	}
	if cfg.RAG.DefaultTopK != 5 {
		t.Errorf("expected default topK 5, got %d", cfg.RAG.DefaultTopK)
	}
	if cfg.RAG.MaxContextLength != 12000 {
		t.Errorf("expected default max context length 12000, got %d", cfg.RAG.MaxContextLength)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("::: not yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad_ExplicitValuesOverrideDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfgContent := `
transform:
  workerThreads: 8
  queueCapacity: 50
rag:
  defaultTopK: 10
  defaultMinScore: 0.7
`
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Transform.WorkerThreads != 8 || cfg.Transform.QueueCapacity != 50 {
		t.Errorf("explicit transform config not honored: %+v", cfg.Transform)
	}
	if cfg.RAG.DefaultTopK != 10 || cfg.RAG.DefaultMinScore != 0.7 {
		t.Errorf("explicit rag config not honored: %+v", cfg.RAG)
	}
}
