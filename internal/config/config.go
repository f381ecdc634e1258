// Package config loads the bridge's YAML configuration and applies defaults,
// following the teacher's LoadConfig pattern: a flat Config struct of
// nested per-concern structs, unmarshaled then defaulted in place.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceRoot is one configured discovery root (sources[] in spec §6).
type SourceRoot struct {
	Folder    string   `yaml:"folder"`
	Recursive bool     `yaml:"recursive"`
	Types     []string `yaml:"types"`
	MimeTypes []string `yaml:"mimeTypes"`
}

// ExcludeConfig is the process-wide exclusion filter.
type ExcludeConfig struct {
	Paths   []string `yaml:"paths"`
	Aspects []string `yaml:"aspects"`
}

// TransformConfig sizes the transformation worker pool.
type TransformConfig struct {
	WorkerThreads int `yaml:"workerThreads"`
	QueueCapacity int `yaml:"queueCapacity"`
}

// EmbeddingPipelineConfig drives the chunker and the embedding label.
type EmbeddingPipelineConfig struct {
	ChunkSize    int    `yaml:"chunkSize"`
	ChunkOverlap int    `yaml:"chunkOverlap"`
	ModelName    string `yaml:"modelName"`
}

// BatchExecutorConfig sizes the ingestion executor.
type BatchExecutorConfig struct {
	CoreSize                int `yaml:"coreSize"`
	MaxSize                 int `yaml:"maxSize"`
	QueueCapacity           int `yaml:"queueCapacity"`
	AwaitTerminationSeconds int `yaml:"awaitTerminationSeconds"`
}

// IDPConfig is the OAuth2 Resource-Owner-Password token endpoint.
type IDPConfig struct {
	TokenURL     string `yaml:"tokenUrl"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

// ModelBootstrapConfig toggles and feeds idempotent schema provisioning.
type ModelBootstrapConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Fragments map[string]string `yaml:"fragments"`
}

// ModelConfig nests bootstrap settings under lake.model.
type ModelConfig struct {
	Bootstrap ModelBootstrapConfig `yaml:"bootstrap"`
}

// LakeConfig configures the content lake client.
type LakeConfig struct {
	URL          string      `yaml:"url"`
	RepositoryID string      `yaml:"repositoryId"`
	TargetPath   string      `yaml:"targetPath"`
	IDP          IDPConfig   `yaml:"idp"`
	Model        ModelConfig `yaml:"model"`
}

// TransformServiceConfig configures the extraction service client.
type TransformServiceConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeoutMs"`
	Enabled   bool   `yaml:"enabled"`
}

// BasicAuthConfig carries source-repository service credentials.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SourceSecurityConfig nests basic-auth settings.
type SourceSecurityConfig struct {
	BasicAuth BasicAuthConfig `yaml:"basicAuth"`
}

// SourceConfig configures the source repository client.
type SourceConfig struct {
	URL      string               `yaml:"url"`
	Security SourceSecurityConfig `yaml:"security"`
}

// RAGConfig configures default RAG behavior.
type RAGConfig struct {
	DefaultTopK         int     `yaml:"defaultTopK"`
	DefaultMinScore     float64 `yaml:"defaultMinScore"`
	MaxContextLength    int     `yaml:"maxContextLength"`
	DefaultSystemPrompt string  `yaml:"defaultSystemPrompt"`
}

// SemanticSearchConfig configures default search behavior.
type SemanticSearchConfig struct {
	DefaultMinScore float64 `yaml:"defaultMinScore"`
}

// EmbeddingClientConfig configures the embedding HTTP endpoint.
type EmbeddingClientConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

// ChatClientConfig configures the chat/completion HTTP endpoint.
type ChatClientConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "anthropic"
	BaseURL   string `yaml:"baseUrl"`
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

// BatchConfig nests the batch ingestion executor.
type BatchConfig struct {
	Executor BatchExecutorConfig `yaml:"executor"`
}

// HTTPConfig configures the bridge's own HTTP server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level configuration document.
type Config struct {
	Sources          []SourceRoot            `yaml:"sources"`
	Exclude          ExcludeConfig           `yaml:"exclude"`
	Transform        TransformConfig         `yaml:"transform"`
	Embedding        EmbeddingPipelineConfig `yaml:"embedding"`
	Batch            BatchConfig             `yaml:"batch"`
	Lake             LakeConfig              `yaml:"lake"`
	TransformService TransformServiceConfig  `yaml:"transformService"`
	Source           SourceConfig            `yaml:"source"`
	RAG              RAGConfig               `yaml:"rag"`
	SemanticSearch   SemanticSearchConfig    `yaml:"semanticSearch"`
	EmbeddingClient  EmbeddingClientConfig   `yaml:"embeddingClient"`
	ChatClient       ChatClientConfig        `yaml:"chatClient"`
	HTTP             HTTPConfig              `yaml:"http"`
}

// Load reads the configuration from a YAML file, unmarshals it, and applies
// defaults for every optional setting.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Transform.WorkerThreads <= 0 {
		cfg.Transform.WorkerThreads = 4
	}
	if cfg.Transform.QueueCapacity <= 0 {
		cfg.Transform.QueueCapacity = 1000
	}
	if cfg.Embedding.ChunkSize <= 0 {
		cfg.Embedding.ChunkSize = 1000
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "default-embedding"
	}
	if cfg.Batch.Executor.CoreSize <= 0 {
		cfg.Batch.Executor.CoreSize = 1
	}
	if cfg.Batch.Executor.MaxSize <= 0 {
		cfg.Batch.Executor.MaxSize = cfg.Batch.Executor.CoreSize
	}
	if cfg.Batch.Executor.QueueCapacity <= 0 {
		cfg.Batch.Executor.QueueCapacity = 1000
	}
	if cfg.Batch.Executor.AwaitTerminationSeconds <= 0 {
		cfg.Batch.Executor.AwaitTerminationSeconds = 5
	}
	if cfg.RAG.DefaultTopK <= 0 {
		cfg.RAG.DefaultTopK = 5
	}
	if cfg.RAG.DefaultMinScore <= 0 {
		cfg.RAG.DefaultMinScore = 0.5
	}
	if cfg.RAG.MaxContextLength <= 0 {
		cfg.RAG.MaxContextLength = 12000
	}
	if cfg.RAG.DefaultSystemPrompt == "" {
		cfg.RAG.DefaultSystemPrompt = "Answer strictly from the given context; cite sources by their label; " +
			"state when the context is insufficient; be concise."
	}
	if cfg.SemanticSearch.DefaultMinScore <= 0 {
		cfg.SemanticSearch.DefaultMinScore = 0.5
	}
	if cfg.TransformService.TimeoutMs <= 0 {
		cfg.TransformService.TimeoutMs = 30000
	}
	if cfg.EmbeddingClient.TimeoutMs <= 0 {
		cfg.EmbeddingClient.TimeoutMs = 30000
	}
	if cfg.ChatClient.TimeoutMs <= 0 {
		cfg.ChatClient.TimeoutMs = 60000
	}
	if cfg.ChatClient.Provider == "" {
		cfg.ChatClient.Provider = "openai"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
}
