package lakeclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const documentsPath = "/api/documents"

// enforceSysName mandates server-side name validation on path-based create,
// matching the content lake's path-create contract.
var enforceSysNameQuery = url.Values{"enforceSysName": []string{"true"}}

// GetByID fetches a document by its lake id.
func (c *Client) GetByID(ctx context.Context, id string) (Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, documentsPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := decodeJSON(resp.Body, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// UpdateByID replaces a document's full representation.
func (c *Client) UpdateByID(ctx context.Context, id string, doc Document) (Document, error) {
	body, err := marshalBody(doc)
	if err != nil {
		return Document{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPut, documentsPath+"/"+url.PathEscape(id), nil, body)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var out Document
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Document{}, err
	}
	return out, nil
}

// PatchByID applies a JSON-Patch (RFC 6902) document to a document by id.
func (c *Client) PatchByID(ctx context.Context, id string, ops []PatchOp) (Document, error) {
	body, err := marshalBody(ops)
	if err != nil {
		return Document{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, documentsPath+"/"+url.PathEscape(id), nil, body)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var out Document
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Document{}, err
	}
	return out, nil
}

// DeleteByID removes a document by id.
func (c *Client) DeleteByID(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, documentsPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classify(resp)
}

// encodePathSegments percent-encodes each path segment per RFC 3986 (so a
// space becomes %20) while leaving the separating slashes themselves
// unencoded; the content lake rejects a literal %2F between segments.
func encodePathSegments(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}

// CreateAtPath creates a document at an explicit path, segment-encoding the
// path per RFC 3986.
func (c *Client) CreateAtPath(ctx context.Context, path string, doc Document) (Document, error) {
	body, err := marshalBody(doc)
	if err != nil {
		return Document{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, documentsPath+"/path"+encodePathSegments(path), enforceSysNameQuery, body)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var out Document
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Document{}, err
	}
	return out, nil
}

// ExistsByPath reports whether a document exists at the given path. A 404
// is treated as "does not exist"; any other error propagates.
func (c *Client) ExistsByPath(ctx context.Context, path string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, documentsPath+"/path"+encodePathSegments(path), nil, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := classify(resp); err != nil {
		return false, err
	}
	return true, nil
}

// CreateFolder creates a folder document at path, treating a 409 conflict
// (already exists) as success rather than an error.
func (c *Client) CreateFolder(ctx context.Context, path, sourceID, sourceRepositoryID string) (Document, error) {
	doc := Document{
		PrimaryType:        PrimaryTypeFolder,
		SourceID:           sourceID,
		SourceRepositoryID: sourceRepositoryID,
		Paths:              []string{path},
		SyncStatus:         SyncIndexed,
	}
	body, err := marshalBody(doc)
	if err != nil {
		return Document{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, documentsPath+"/path"+encodePathSegments(path), enforceSysNameQuery, body)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return c.GetByPath(ctx, path)
	}
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var out Document
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Document{}, err
	}
	return out, nil
}

// GetByPath fetches a document by its path.
func (c *Client) GetByPath(ctx context.Context, path string) (Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, documentsPath+"/path"+encodePathSegments(path), nil, nil)
	if err != nil {
		return Document{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return Document{}, err
	}
	var out Document
	if err := decodeJSON(resp.Body, &out); err != nil {
		return Document{}, err
	}
	return out, nil
}

// EnsureFolder creates every missing segment of a folder path, progressively,
// tolerating a 409 on any segment that another caller created concurrently.
// A 401/403 on any segment is fatal and returned as ErrPermissionDenied.
func (c *Client) EnsureFolder(ctx context.Context, path, sourceRepositoryID string) error {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		exists, err := c.ExistsByPath(ctx, cur)
		if err != nil {
			return fmt.Errorf("check folder %q: %w", cur, err)
		}
		if exists {
			continue
		}
		if _, err := c.CreateFolder(ctx, cur, "", sourceRepositoryID); err != nil {
			return fmt.Errorf("create folder %q: %w", cur, err)
		}
	}
	return nil
}

// singleQuoteEscape doubles embedded single quotes per HXQL's string literal
// escaping rule.
func singleQuoteEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// FindBySourceID locates the single document mirroring a given source
// repository node, if any, via an HXQL lookup keyed on the mirrored name.
func (c *Client) FindBySourceID(ctx context.Context, sourceID, sourceRepositoryID string) (Document, bool, error) {
	q := fmt.Sprintf("SELECT * FROM SysContent WHERE sys_primaryType = 'SysFile' AND sys_name = '%s'",
		singleQuoteEscape(sourceID))
	result, err := c.Query(ctx, q, 1, 0)
	if err != nil {
		return Document{}, false, err
	}
	if len(result.Documents) == 0 {
		return Document{}, false, nil
	}
	return result.Documents[0], true, nil
}
