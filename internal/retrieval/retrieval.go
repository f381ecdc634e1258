// Package retrieval implements the permission-aware semantic search core:
// query embedding, caller-authority resolution, ACL-scoped HXQL filter
// construction, vector search, and hit enrichment.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aborroy/alfresco-lake-bridge/internal/lakeclient"
)

const (
	minTopK                = 1
	maxTopK                = 50
	defaultMinScore        = 0.5
	everyonePrincipal      = "__Everyone__"
	groupEveryoneAuthority = "GROUP_EVERYONE"
)

// Embedder computes a query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// GroupLister resolves a user's group memberships; failures are tolerated.
type GroupLister interface {
	ListGroups(ctx context.Context, user string) ([]string, error)
}

// VectorSearcher is the subset of lakeclient.Client used for search.
type VectorSearcher interface {
	VectorSearch(ctx context.Context, vector []float64, embeddingType, hxqlFilter string, limit int) ([]lakeclient.ScoredEmbedding, error)
	GetByID(ctx context.Context, id string) (lakeclient.Document, error)
}

// Caller is the authenticated principal issuing a search.
type Caller struct {
	Username           string
	SourceRepositoryID string
}

// Request parameterizes one retrieval call.
type Request struct {
	Query         string
	TopK          int
	EmbeddingType string
	Filter        string
	MinScore      float64
}

// Hit is one ranked, enriched search result.
type Hit struct {
	Rank       int
	Score      float64
	DocumentID string
	SourceID   string
	Name       string
	Path       string
	MimeType   string
	ChunkText  string
}

// Result is a retrieval call's full response, including query metadata.
type Result struct {
	Hits        []Hit
	Model       string
	Dimension   int
	TotalCount  int
	ElapsedMs   int64
}

// Retriever ties together the embedding client, group lookup, and vector
// search to answer permission-scoped semantic queries.
type Retriever struct {
	embed  Embedder
	groups GroupLister
	search VectorSearcher
	model  string
	log    zerolog.Logger
}

// New constructs a Retriever.
func New(embed Embedder, groups GroupLister, search VectorSearcher, model string, log zerolog.Logger) *Retriever {
	return &Retriever{embed: embed, groups: groups, search: search, model: model, log: log}
}

// Search embeds the query, builds the permission filter, runs vector
// search, and enriches the ranked hits.
func (r *Retriever) Search(ctx context.Context, caller Caller, req Request) (Result, error) {
	start := time.Now()
	if strings.TrimSpace(req.Query) == "" {
		return Result{}, nil
	}

	vector, err := r.embed.EmbedQuery(ctx, req.Query)
	if err != nil {
		return Result{}, err
	}
	if len(vector) == 0 {
		return Result{}, nil
	}

	topK := clampTopK(req.TopK)
	minScore := clampMinScore(req.MinScore)
	embeddingType := req.EmbeddingType
	if embeddingType == "" {
		embeddingType = "*"
	}

	authorities := r.resolveAuthorities(ctx, caller)
	filter := BuildPermissionFilter(caller.Username, caller.SourceRepositoryID, authorities, req.Filter)

	hits, err := r.search.VectorSearch(ctx, vector, embeddingType, filter, topK)
	if err != nil {
		return Result{}, err
	}

	ranked := r.enrich(ctx, hits, minScore)
	return Result{
		Hits:       ranked,
		Model:      r.model,
		Dimension:  len(vector),
		TotalCount: len(hits),
		ElapsedMs:  time.Since(start).Milliseconds(),
	}, nil
}

// resolveAuthorities always includes the caller's username and
// GROUP_EVERYONE; group memberships are best-effort.
func (r *Retriever) resolveAuthorities(ctx context.Context, caller Caller) []string {
	authorities := []string{caller.Username, groupEveryoneAuthority}
	groups, err := r.groups.ListGroups(ctx, caller.Username)
	if err != nil {
		r.log.Warn().Err(err).Str("username", caller.Username).Msg("resolve group memberships failed; continuing with username and everyone")
		return authorities
	}
	return append(authorities, groups...)
}

// BuildPermissionFilter builds the HXQL SELECT statement scoping results to
// what the caller is allowed to read, ANDed with any caller-provided
// additional filter.
func BuildPermissionFilter(username, sourceRepositoryID string, authorities []string, callerFilter string) string {
	clauses := []string{fmt.Sprintf("= '%s'", everyonePrincipal)}
	clauses = append(clauses, fmt.Sprintf("= '%s_#_%s'", username, sourceRepositoryID))
	for _, a := range authorities {
		if a == groupEveryoneAuthority || a == username {
			continue
		}
		if strings.HasPrefix(a, "GROUP_") {
			clauses = append(clauses, fmt.Sprintf("= 'g:%s_#_%s'", a, sourceRepositoryID))
		}
	}
	permission := strings.Join(clauses, " OR ")
	where := permission
	if strings.TrimSpace(callerFilter) != "" {
		where = fmt.Sprintf("(%s) AND (%s)", permission, callerFilter)
	}
	return "SELECT * FROM SysContent WHERE " + where
}

func clampTopK(topK int) int {
	if topK < minTopK {
		return minTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func clampMinScore(minScore float64) float64 {
	if math.IsNaN(minScore) || minScore <= 0 {
		return defaultMinScore
	}
	if minScore > 1 {
		return 1
	}
	return minScore
}

// enrich drops hits below minScore and resolves parent-document metadata
// by documentId, assigning 1-based ranks to the survivors in order.
func (r *Retriever) enrich(ctx context.Context, hits []lakeclient.ScoredEmbedding, minScore float64) []Hit {
	var out []Hit
	rank := 1
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		hit := Hit{Rank: rank, Score: h.Score, DocumentID: h.DocumentID, ChunkText: h.Embedding.Text}
		if doc, err := r.search.GetByID(ctx, h.DocumentID); err == nil {
			hit.SourceID = doc.SourceID
			if len(doc.Paths) > 0 {
				hit.Path = doc.Paths[0]
			}
			if name, ok := doc.IngestProperties["name"].(string); ok {
				hit.Name = name
			}
			if mt, ok := doc.IngestProperties["mimeType"].(string); ok {
				hit.MimeType = mt
			}
		}
		out = append(out, hit)
		rank++
	}
	return out
}
