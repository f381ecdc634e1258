// Package ingest builds and writes lake documents from discovered source
// documents: ACL mapping, ingest property projection, folder creation, and
// transformation task emission.
package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aborroy/alfresco-lake-bridge/internal/lakeclient"
	"github.com/aborroy/alfresco-lake-bridge/internal/sourceclient"
)

// TransformationTask is handed to the transformation queue for every
// ingested document so its content can be processed asynchronously.
type TransformationTask struct {
	SourceID     string
	LakeID       string
	MimeType     string
	DocumentName string
	DocumentPath string
	CreatedAt    time.Time
	RetryCount   int
}

// lakeDocuments is the subset of lakeclient.Client the ingester depends on.
type lakeDocuments interface {
	FindBySourceID(ctx context.Context, sourceID, sourceRepositoryID string) (lakeclient.Document, bool, error)
	UpdateByID(ctx context.Context, id string, doc lakeclient.Document) (lakeclient.Document, error)
	EnsureFolder(ctx context.Context, path, sourceRepositoryID string) error
	CreateAtPath(ctx context.Context, path string, doc lakeclient.Document) (lakeclient.Document, error)
}

// sourceAuthorities is the subset of sourceclient.Client the ingester
// depends on: resolving the source repository id.
type sourceAuthorities interface {
	RepositoryID(ctx context.Context) (string, error)
}

// Sink is where ingested transformation tasks are delivered.
type Sink interface {
	Enqueue(ctx context.Context, task TransformationTask) error
}

// JobCounters tracks per-job ingestion outcomes.
type JobCounters interface {
	IncrementIngested(jobID string)
	IncrementFailed(jobID string)
}

// Ingester writes one lake document per discovered source document and
// emits a transformation task for each.
type Ingester struct {
	lake       lakeDocuments
	source     sourceAuthorities
	sink       Sink
	counters   JobCounters
	targetPath string
	log        zerolog.Logger
}

// New constructs an Ingester.
func New(lake lakeDocuments, source sourceAuthorities, sink Sink, counters JobCounters, targetPath string, log zerolog.Logger) *Ingester {
	return &Ingester{lake: lake, source: source, sink: sink, counters: counters, targetPath: targetPath, log: log}
}

// buildIngestProperties returns the ordered property map and its key set,
// omitting null values, per the documented key order.
func buildIngestProperties(node sourceclient.Node, sourceRepositoryID string) (map[string]any, []string) {
	ordered := []struct {
		key   string
		value any
	}{
		{"sourceNodeId", node.ID},
		{"sourceRepositoryId", sourceRepositoryID},
		{"name", node.Name},
		{"path", node.Path.Name},
		{"mimeType", node.MimeType},
		{"modifiedAt", node.ModifiedAt},
	}
	props := make(map[string]any, len(ordered))
	names := make([]string, 0, len(ordered))
	for _, kv := range ordered {
		if isNilValue(kv.value) {
			continue
		}
		props[kv.key] = kv.value
		names = append(names, kv.key)
	}
	return props, names
}

func isNilValue(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case time.Time:
		return t.IsZero()
	default:
		return v == nil
	}
}

// targetParentPath builds <targetPath>/<repositoryId>/<source dir>, omitting
// the repository id segment when targetPath joined with the id is just "/"
// (an empty id under a root target path).
func targetParentPath(targetPath, sourceRepositoryID, sourceDirPath string) string {
	prefix := strings.TrimRight(targetPath, "/")
	if prefix == "" {
		prefix = "/"
	}
	repoPrefixed := path.Join(prefix, sourceRepositoryID)
	if repoPrefixed == "/" {
		return path.Join(prefix, sourceDirPath)
	}
	return path.Join(repoPrefixed, sourceDirPath)
}

// Ingest projects one source document into the lake, creating or updating
// its mirror document, and emits a transformation task on success.
func (g *Ingester) Ingest(ctx context.Context, jobID string, node sourceclient.Node, readAuthorities []string) error {
	sourceRepositoryID, err := g.source.RepositoryID(ctx)
	if err != nil {
		g.counters.IncrementFailed(jobID)
		g.log.Error().Err(err).Str("sourceId", node.ID).Msg("resolve repository id failed")
		return fmt.Errorf("resolve repository id: %w", err)
	}

	ingestProperties, ingestPropertyNames := buildIngestProperties(node, sourceRepositoryID)
	acl := BuildACL(readAuthorities, sourceRepositoryID)

	existing, found, err := g.lake.FindBySourceID(ctx, node.ID, sourceRepositoryID)
	if err != nil {
		g.counters.IncrementFailed(jobID)
		return fmt.Errorf("look up existing lake document: %w", err)
	}

	doc := lakeclient.Document{
		PrimaryType:         lakeclient.PrimaryTypeFile,
		Mixins:              []string{lakeclient.MixinRemoteIngest},
		SourceID:            node.ID,
		SourceRepositoryID:  sourceRepositoryID,
		IngestProperties:    ingestProperties,
		IngestPropertyNames: ingestPropertyNames,
		ACL:                 acl,
		SyncStatus:          lakeclient.SyncPending,
	}

	var lakeID string
	if found {
		doc.Paths = existing.Paths
		updated, err := g.lake.UpdateByID(ctx, existing.LakeID, doc)
		if err != nil {
			g.counters.IncrementFailed(jobID)
			return fmt.Errorf("update existing lake document: %w", err)
		}
		lakeID = updated.LakeID
	} else {
		dirPath := sourceclient.ResolveDirPath(node.Path)
		parentPath := targetParentPath(g.targetPath, sourceRepositoryID, dirPath)
		if err := g.lake.EnsureFolder(ctx, parentPath, sourceRepositoryID); err != nil {
			g.counters.IncrementFailed(jobID)
			return fmt.Errorf("ensure parent folder: %w", err)
		}
		fullPath := path.Join(parentPath, node.Name)
		doc.Paths = []string{fullPath}
		created, err := g.lake.CreateAtPath(ctx, fullPath, doc)
		if err != nil {
			g.counters.IncrementFailed(jobID)
			g.log.Error().Err(err).Str("sourceId", node.ID).Str("path", fullPath).Msg("create lake document failed")
			return fmt.Errorf("create lake document: %w", err)
		}
		lakeID = created.LakeID
	}

	task := TransformationTask{
		SourceID:     node.ID,
		LakeID:       lakeID,
		MimeType:     node.MimeType,
		DocumentName: node.Name,
		DocumentPath: node.Path.Name,
		CreatedAt:    time.Now(),
	}
	if err := g.sink.Enqueue(ctx, task); err != nil {
		g.counters.IncrementFailed(jobID)
		return fmt.Errorf("enqueue transformation task: %w", err)
	}

	g.counters.IncrementIngested(jobID)
	return nil
}
