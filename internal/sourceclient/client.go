package sourceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aborroy/alfresco-lake-bridge/internal/errs"
)

const childrenPageSize = 100
const groupsPageSize = 1000

// Client is a typed wrapper over the source repository's REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	repoMu   sync.Mutex
	repoID   string
	repoOnce bool
}

// Option configures Client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New constructs a source repository client authenticated with basic auth.
func New(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) classify(resp *http.Response) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}
	if e := errs.Classify(resp.StatusCode); e != nil {
		return fmt.Errorf("source repository returned %s: %w", resp.Status, e)
	}
	return fmt.Errorf("source repository returned unexpected status %s", resp.Status)
}

// listChildrenResponse mirrors the source repository's paged listing
// envelope.
type listChildrenResponse struct {
	List struct {
		Pagination struct {
			HasMoreItems bool `json:"hasMoreItems"`
		} `json:"pagination"`
		Entries []struct {
			Entry Node `json:"entry"`
		} `json:"entries"`
	} `json:"list"`
}

// ListChildren returns one page of a folder's children, starting at skip and
// bounded by max entries.
func (c *Client) ListChildren(ctx context.Context, folderID string, skip, max int) (ChildrenPage, error) {
	q := url.Values{}
	q.Set("skipCount", strconv.Itoa(skip))
	q.Set("maxItems", strconv.Itoa(max))
	q.Set("include", "path,permissions,aspectNames")
	req, err := c.newRequest(ctx, http.MethodGet, "/api/-default-/public/alfresco/versions/1/nodes/"+url.PathEscape(folderID)+"/children", q, nil)
	if err != nil {
		return ChildrenPage{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ChildrenPage{}, fmt.Errorf("list children: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if err := c.classify(resp); err != nil {
		return ChildrenPage{}, err
	}
	var out listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChildrenPage{}, fmt.Errorf("decode children response: %w", err)
	}
	page := ChildrenPage{HasMoreItems: out.List.Pagination.HasMoreItems}
	for _, e := range out.List.Entries {
		page.Entries = append(page.Entries, e.Entry)
	}
	return page, nil
}

// ListAllChildren pages a folder's children exhaustively at page size 100
// until a short page is seen.
func (c *Client) ListAllChildren(ctx context.Context, folderID string) ([]Node, error) {
	var all []Node
	skip := 0
	for {
		page, err := c.ListChildren(ctx, folderID, skip, childrenPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		if len(page.Entries) < childrenPageSize || !page.HasMoreItems {
			return all, nil
		}
		skip += childrenPageSize
	}
}

// invalidTempFileChars matches characters that must not appear in a temp
// file name: path separators, glob/shell metacharacters, and control chars.
var invalidTempFileChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// tempFileName builds the "source-node-<id>-<sanitizedFileName>" name used
// for staged downloads, sanitizing and truncating the candidate file name.
func tempFileName(id, fileName string) string {
	sanitized := invalidTempFileChars.ReplaceAllString(fileName, "_")
	if sanitized == "" {
		sanitized = "content.bin"
	}
	if len(sanitized) > 120 {
		sanitized = sanitized[:120]
	}
	return fmt.Sprintf("source-node-%s-%s", id, sanitized)
}

// StreamToTempFile downloads a node's content and writes it to a temp file
// named per the sanitization rule above. The caller owns cleanup of the
// returned path.
func (c *Client) StreamToTempFile(ctx context.Context, id, fileName string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/-default-/public/alfresco/versions/1/nodes/"+url.PathEscape(id)+"/content", nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get content: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if err := c.classify(resp); err != nil {
		return "", err
	}

	name := tempFileName(id, fileName)
	f, err := os.CreateTemp("", name+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stream content to temp file: %w", err)
	}
	return f.Name(), nil
}

// GetContent returns a node's raw content bytes.
func (c *Client) GetContent(ctx context.Context, id string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/-default-/public/alfresco/versions/1/nodes/"+url.PathEscape(id)+"/content", nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get content: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if err := c.classify(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

type discoveryResponse struct {
	Repository struct {
		ID string `json:"id"`
	} `json:"repository"`
}

// RepositoryID lazily reads the discovery endpoint exactly once and memoizes
// the result under a mutex, double-checked on entry.
func (c *Client) RepositoryID(ctx context.Context) (string, error) {
	c.repoMu.Lock()
	if c.repoOnce {
		id := c.repoID
		c.repoMu.Unlock()
		return id, nil
	}
	c.repoMu.Unlock()

	req, err := c.newRequest(ctx, http.MethodGet, "/api/discovery", nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("discovery: %w", errs.ErrTransientBackend)
	}
	defer resp.Body.Close()
	if err := c.classify(resp); err != nil {
		return "", err
	}
	var out discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode discovery response: %w", err)
	}

	c.repoMu.Lock()
	defer c.repoMu.Unlock()
	if !c.repoOnce {
		c.repoID = out.Repository.ID
		c.repoOnce = true
	}
	return c.repoID, nil
}

// Ping verifies the source repository is reachable by resolving its
// repository id (memoized after the first successful call).
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.RepositoryID(ctx)
	return err
}

// ExtractReadAuthorities returns the union of authorities with read access
// on a node: inherited entries only if inheritance is enabled, plus locally
// set entries; an authority counts iff its access status is ALLOWED and its
// role confers read access.
func ExtractReadAuthorities(node Node) []string {
	seen := map[string]bool{}
	var out []string
	add := func(a Authority) {
		if a.AccessStatus != "ALLOWED" {
			return
		}
		if !rolesAllowingRead[a.Name] {
			return
		}
		if seen[a.AuthorityID] {
			return
		}
		seen[a.AuthorityID] = true
		out = append(out, a.AuthorityID)
	}
	if node.Permissions.Inherited {
		for _, a := range node.Permissions.Inherited_ {
			add(a)
		}
	}
	for _, a := range node.Permissions.Locally {
		add(a)
	}
	return out
}

type groupsResponse struct {
	List struct {
		Pagination struct {
			HasMoreItems bool `json:"hasMoreItems"`
		} `json:"pagination"`
		Entries []struct {
			Entry struct {
				ID string `json:"id"`
			} `json:"entry"`
		} `json:"entries"`
	} `json:"list"`
}

// ListGroups pages the memberships endpoint for a user at page size 1000.
func (c *Client) ListGroups(ctx context.Context, user string) ([]string, error) {
	var groups []string
	skip := 0
	for {
		q := url.Values{}
		q.Set("skipCount", strconv.Itoa(skip))
		q.Set("maxItems", strconv.Itoa(groupsPageSize))
		req, err := c.newRequest(ctx, http.MethodGet, "/api/-default-/public/alfresco/versions/1/people/"+url.PathEscape(user)+"/groups", q, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", errs.ErrTransientBackend)
		}
		var out groupsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		classifyErr := c.classify(resp)
		resp.Body.Close()
		if classifyErr != nil {
			return nil, classifyErr
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("decode groups response: %w", decodeErr)
		}
		for _, e := range out.List.Entries {
			groups = append(groups, e.Entry.ID)
		}
		if len(out.List.Entries) < groupsPageSize || !out.List.Pagination.HasMoreItems {
			return groups, nil
		}
		skip += groupsPageSize
	}
}

// ResolveDirPath returns the directory portion of a node's path name, used
// by the metadata ingester to build the lake's mirrored folder hierarchy.
func ResolveDirPath(p Path) string {
	dir := filepath.Dir(p.Name)
	if dir == "." {
		return "/"
	}
	return dir
}
