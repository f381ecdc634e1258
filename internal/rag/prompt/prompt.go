// Package prompt orchestrates retrieval into a grounded chat prompt: it
// assembles a size-capped context block from ranked hits, calls the chat
// client, and returns an answer with source attribution.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aborroy/alfresco-lake-bridge/internal/retrieval"
)

const (
	defaultTopK            = 5
	defaultMinScore        = 0.5
	defaultMaxContextLength = 12000
	defaultSystemPrompt    = "Answer strictly from the given context; cite sources by their label; state when the context is insufficient; be concise."
	noResultsAnswer        = "I could not find any relevant documents to answer this question."
	truncationSuffix       = "\n... (context truncated)"
	minTruncationRemainder = 100
)

// Searcher is the retrieval capability the RAG orchestrator depends on.
type Searcher interface {
	Search(ctx context.Context, caller retrieval.Caller, req retrieval.Request) (retrieval.Result, error)
}

// ChatModel generates an answer from a system and user prompt.
type ChatModel interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (answer, model string, err error)
}

// Config holds the orchestrator's configured defaults.
type Config struct {
	DefaultTopK         int
	DefaultMinScore     float64
	MaxContextLength    int
	DefaultSystemPrompt string
}

// Request parameterizes one RAG call.
type Request struct {
	Question       string
	TopK           int
	MinScore       float64
	Filter         string
	EmbeddingType  string
	SystemPrompt   string
	IncludeContext bool
}

// Source describes one context entry's attribution in the response.
type Source struct {
	Label      string
	SourceID   string
	Name       string
	Path       string
	Score      float64
}

// Response is the RAG call's full result.
type Response struct {
	Answer         string
	Question       string
	Model          string
	SearchTimeMs   int64
	GenerationTimeMs int64
	TotalTimeMs    int64
	SourcesUsed    int
	Sources        []Source
	Context        []string
}

// Orchestrator ties retrieval and the chat client together.
type Orchestrator struct {
	search Searcher
	chat   ChatModel
	cfg    Config
}

// New constructs an Orchestrator, filling in defaults for any unset Config
// fields.
func New(search Searcher, chat ChatModel, cfg Config) *Orchestrator {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = defaultTopK
	}
	if cfg.DefaultMinScore <= 0 {
		cfg.DefaultMinScore = defaultMinScore
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = defaultMaxContextLength
	}
	if cfg.DefaultSystemPrompt == "" {
		cfg.DefaultSystemPrompt = defaultSystemPrompt
	}
	return &Orchestrator{search: search, chat: chat, cfg: cfg}
}

// Answer retrieves context for the question, assembles a grounded prompt,
// and calls the chat model.
func (o *Orchestrator) Answer(ctx context.Context, caller retrieval.Caller, req Request) (Response, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = o.cfg.DefaultTopK
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = o.cfg.DefaultMinScore
	}

	searchStart := time.Now()
	result, err := o.search.Search(ctx, caller, retrieval.Request{
		Query: req.Question, TopK: topK, MinScore: minScore,
		Filter: req.Filter, EmbeddingType: req.EmbeddingType,
	})
	if err != nil {
		return Response{}, err
	}
	searchTime := time.Since(searchStart).Milliseconds()

	if len(result.Hits) == 0 {
		return Response{
			Answer: noResultsAnswer, Question: req.Question, Model: "none",
			SearchTimeMs: searchTime, TotalTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	contextEntries, sources := assembleContext(result.Hits, o.cfg.MaxContextLength)

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = o.cfg.DefaultSystemPrompt
	}
	userPrompt := buildUserPrompt(strings.Join(contextEntries, ""), req.Question)

	genStart := time.Now()
	answer, model, err := o.chat.Generate(ctx, systemPrompt, userPrompt)
	genTime := time.Since(genStart).Milliseconds()
	if err != nil {
		answer = err.Error()
		model = "error"
	}

	resp := Response{
		Answer: answer, Question: req.Question, Model: model,
		SearchTimeMs: searchTime, GenerationTimeMs: genTime,
		TotalTimeMs: time.Since(start).Milliseconds(),
		SourcesUsed: len(sources), Sources: sources,
	}
	if req.IncludeContext {
		resp.Context = contextEntries
	}
	return resp, nil
}

// assembleContext appends one labeled entry per hit while the running
// length stays within maxContextLength; the entry that would overflow is
// truncated (if enough of it still fits) and a truncation marker appended.
func assembleContext(hits []retrieval.Hit, maxContextLength int) ([]string, []Source) {
	var entries []string
	var sources []Source
	total := 0
	for _, h := range hits {
		label := fmt.Sprintf("Source %d: %s", h.Rank, h.Name)
		entry := fmt.Sprintf("[%s (score: %.2f)]\n%s\n\n", label, h.Score, h.ChunkText)
		sources = append(sources, Source{Label: label, SourceID: h.SourceID, Name: h.Name, Path: h.Path, Score: h.Score})

		if total+len(entry) <= maxContextLength {
			entries = append(entries, entry)
			total += len(entry)
			continue
		}

		remaining := maxContextLength - total
		if remaining >= minTruncationRemainder {
			prefix := entry[:remaining]
			entries = append(entries, prefix+truncationSuffix)
		} else {
			entries = append(entries, truncationSuffix)
		}
		break
	}
	return entries, sources
}

func buildUserPrompt(context, question string) string {
	return fmt.Sprintf(
		"Based on the following document context, answer the question.\n\n--- DOCUMENT CONTEXT ---\n%s\n--- END CONTEXT ---\n\nQuestion: %s\n\nAnswer:",
		context, question)
}
