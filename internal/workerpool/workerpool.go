// Package workerpool runs the fixed-size transformation worker pool that
// drains the transformation queue: text extraction, chunking, embedding,
// and atomic replacement of a lake document's embeddings and full text.
package workerpool

import (
	"context"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aborroy/alfresco-lake-bridge/internal/chunking"
	"github.com/aborroy/alfresco-lake-bridge/internal/htmlnorm"
	"github.com/aborroy/alfresco-lake-bridge/internal/ingest"
	"github.com/aborroy/alfresco-lake-bridge/internal/lakeclient"
)

// textMimeTypes are decoded directly from raw bytes without going through
// the extraction service.
var textMimeTypes = map[string]bool{
	"text/plain": true, "text/html": true, "text/xml": true, "text/csv": true,
	"text/markdown": true, "application/json": true, "application/xml": true,
	"application/javascript": true,
}

func isTextMimeType(mimeType string) bool {
	if textMimeTypes[mimeType] {
		return true
	}
	return strings.HasPrefix(mimeType, "text/") ||
		strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json")
}

// Dequeuer is the subset of the transformation queue the pool drains.
type Dequeuer interface {
	Dequeue(ctx context.Context) (ingest.TransformationTask, bool, error)
	MarkCompleted()
	MarkFailed()
}

// SourceContent downloads a task's source content for extraction.
type SourceContent interface {
	StreamToTempFile(ctx context.Context, id, fileName string) (string, error)
	GetContent(ctx context.Context, id string) ([]byte, error)
}

// Extractor converts non-text content to plain text.
type Extractor interface {
	TransformToText(ctx context.Context, content io.Reader, sourceMimetype string, timeoutMs int) (string, error)
}

// Embedder computes chunk embeddings.
type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []string, documentContext string) ([][]float64, error)
}

// LakeDocuments is the subset of lakeclient.Client the pool writes through.
type LakeDocuments interface {
	GetByID(ctx context.Context, id string) (lakeclient.Document, error)
	DeleteEmbeddings(ctx context.Context, doc lakeclient.Document) (lakeclient.Document, error)
	UpdateEmbeddings(ctx context.Context, id string, doc lakeclient.Document, embeddings []lakeclient.Embedding) (lakeclient.Document, error)
	UpdateByID(ctx context.Context, id string, doc lakeclient.Document) (lakeclient.Document, error)
}

// Config configures a Pool's chunking strategy and extraction timeout.
type Config struct {
	Workers      int
	MaxChunkSize int
	MinChunkSize int
	ChunkOverlap int
	ExtractionTimeoutMs int
	ShutdownGrace time.Duration
}

// Pool is the fixed-size transformation worker pool.
type Pool struct {
	cfg      Config
	queue    Dequeuer
	source   SourceContent
	extract  Extractor
	embed    Embedder
	lake     LakeDocuments
	log      zerolog.Logger
}

// New constructs a Pool.
func New(cfg Config, queue Dequeuer, source SourceContent, extract Extractor, embed Embedder, lake LakeDocuments, log zerolog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	return &Pool{cfg: cfg, queue: queue, source: source, extract: extract, embed: embed, lake: lake, log: log}
}

// Run starts the worker pool and blocks until ctx is cancelled, then awaits
// in-flight tasks up to the configured grace period before returning.
func (p *Pool) Run(ctx context.Context) {
	var g errgroup.Group
	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			p.drain(ctx)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(p.cfg.ShutdownGrace):
			p.log.Warn().Msg("transformation worker pool shutdown grace period elapsed; abandoning in-flight tasks")
		}
	}
}

func (p *Pool) drain(ctx context.Context) {
	for {
		task, ok, err := p.queue.Dequeue(ctx)
		if err != nil || !ok {
			return
		}
		if err := p.process(ctx, task); err != nil {
			p.log.Error().Err(err).Str("sourceId", task.SourceID).Msg("transformation task failed")
			p.queue.MarkFailed()
			continue
		}
		p.queue.MarkCompleted()
	}
}

func (p *Pool) process(ctx context.Context, task ingest.TransformationTask) error {
	text, err := p.extractText(ctx, task)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := chunking.Clean(text, chunking.CleanOptions{Aggressive: true})
	chunks := chunking.Adaptive(task.SourceID, cleaned, chunking.AdaptiveOptions{
		MaxChunkSize: p.cfg.MaxChunkSize,
		MinChunkSize: p.cfg.MinChunkSize,
	})
	if len(chunks) == 0 {
		chunks = chunking.FixedWindow(task.SourceID, cleaned, p.cfg.MaxChunkSize, p.cfg.ChunkOverlap)
	}

	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.Text
	}
	vectors, err := p.embed.EmbedChunks(ctx, chunkTexts, task.DocumentName)
	if err != nil {
		return err
	}

	embeddings := make([]lakeclient.Embedding, len(chunks))
	for i, c := range chunks {
		var vec []float64
		if i < len(vectors) {
			vec = vectors[i]
		}
		embeddings[i] = lakeclient.Embedding{Type: "default", Text: c.Text, Vector: vec}
	}

	return p.replaceAtomically(ctx, task.LakeID, text, embeddings)
}

// replaceAtomically issues delete-embeddings -> update-embeddings ->
// update-full-text in that order, as required by the task's ordering
// guarantee. Delete failures are ignored (best effort).
func (p *Pool) replaceAtomically(ctx context.Context, lakeID, text string, embeddings []lakeclient.Embedding) error {
	doc, err := p.lake.GetByID(ctx, lakeID)
	if err != nil {
		return err
	}
	if deleted, err := p.lake.DeleteEmbeddings(ctx, doc); err != nil {
		p.log.Warn().Err(err).Str("lakeId", lakeID).Msg("best-effort embeddings delete failed")
	} else {
		doc = deleted
	}
	updated, err := p.lake.UpdateEmbeddings(ctx, lakeID, doc, embeddings)
	if err != nil {
		return err
	}
	updated.FullText = text
	updated.SyncStatus = lakeclient.SyncIndexed
	_, err = p.lake.UpdateByID(ctx, lakeID, updated)
	return err
}

func (p *Pool) extractText(ctx context.Context, task ingest.TransformationTask) (string, error) {
	if isTextMimeType(task.MimeType) {
		raw, err := p.source.GetContent(ctx, task.SourceID)
		if err != nil {
			return "", err
		}
		text := decodeUTF8(raw)
		if task.MimeType == "text/html" {
			if normalized, err := htmlnorm.Normalize(text, task.DocumentPath); err == nil && strings.TrimSpace(normalized) != "" {
				return normalized, nil
			}
		}
		return text, nil
	}

	path, err := p.source.StreamToTempFile(ctx, task.SourceID, task.DocumentName)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := p.extract.TransformToText(ctx, f, task.MimeType, p.cfg.ExtractionTimeoutMs)
	if err != nil {
		return "", err
	}
	return text, nil
}

// decodeUTF8 strips invalid UTF-8 byte sequences, matching the worker's
// "decode UTF-8" step for raw text content.
func decodeUTF8(raw []byte) string {
	return strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, string(raw))
}
