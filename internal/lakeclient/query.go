package lakeclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Query runs an HXQL statement, paginated by limit/offset.
func (c *Client) Query(ctx context.Context, hxql string, limit, offset int) (QueryResult, error) {
	q := url.Values{}
	q.Set("q", hxql)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	req, err := c.newRequest(ctx, http.MethodGet, "/api/query", q, nil)
	if err != nil {
		return QueryResult{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return QueryResult{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return QueryResult{}, err
	}
	var out QueryResult
	if err := decodeJSON(resp.Body, &out); err != nil {
		return QueryResult{}, err
	}
	return out, nil
}

// vectorSearchRequest is the body accepted by the vector search endpoint.
type vectorSearchRequest struct {
	Vector        []float64 `json:"vector"`
	EmbeddingType string    `json:"embeddingType,omitempty"`
	Filter        string    `json:"filter,omitempty"`
	Limit         int       `json:"limit"`
}

// VectorSearch runs a k-NN search over embeddings of the given type,
// optionally narrowed by an HXQL filter expression (typically an ACL
// membership predicate), returning the top `limit` scored hits.
func (c *Client) VectorSearch(ctx context.Context, vector []float64, embeddingType, hxqlFilter string, limit int) ([]ScoredEmbedding, error) {
	body, err := marshalBody(vectorSearchRequest{
		Vector:        vector,
		EmbeddingType: embeddingType,
		Filter:        hxqlFilter,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/search/vector", nil, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return nil, err
	}
	var out struct {
		Hits []ScoredEmbedding `json:"hits"`
	}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}
