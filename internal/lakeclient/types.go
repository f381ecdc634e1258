// Package lakeclient is a typed wrapper over the content lake's REST API:
// OAuth2 token acquisition/refresh, an authenticated request interceptor,
// document get/update/patch by id, path-based create, HXQL query, vector
// search, and idempotent schema provisioning.
package lakeclient

// PrimaryType enumerates the two document shapes the lake stores for this
// bridge.
type PrimaryType string

const (
	PrimaryTypeFile   PrimaryType = "File"
	PrimaryTypeFolder PrimaryType = "Folder"
)

const (
	MixinRemoteIngest = "RemoteIngest"
	MixinEmbed        = "Embed"
)

// SyncStatus mirrors a LakeDocument's sync state.
type SyncStatus string

const (
	SyncPending    SyncStatus = "Pending"
	SyncProcessing SyncStatus = "Processing"
	SyncIndexed    SyncStatus = "Indexed"
	SyncFailed     SyncStatus = "Failed"
)

// PrincipalType says whether an ACE principal is a user or a group.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "User"
	PrincipalGroup PrincipalType = "Group"
)

// Principal identifies the actor an ACE grants or denies a permission to.
type Principal struct {
	Type PrincipalType `json:"type"`
	ID   string        `json:"id"`
}

// ACE is a single access-control entry.
type ACE struct {
	Granted    bool          `json:"granted"`
	Permission string        `json:"permission"`
	Principal  Principal     `json:"principal"`
}

// Location optionally anchors an Embedding to a position within the source
// document.
type Location struct {
	Page        *int     `json:"page,omitempty"`
	Paragraph   *int     `json:"paragraph,omitempty"`
	Position    *int     `json:"position,omitempty"`
	Timestamp   *float64 `json:"timestamp,omitempty"`
	Spreadsheet *string  `json:"spreadsheet,omitempty"`
}

// Embedding is one vector computed from one chunk of a document's text.
type Embedding struct {
	Type     string     `json:"type"`
	Text     string     `json:"text"`
	Vector   []float64  `json:"vector"`
	Location *Location  `json:"location,omitempty"`
}

// Document is the content lake's representation of one ingested source
// document.
type Document struct {
	LakeID             string            `json:"lakeId,omitempty"`
	PrimaryType        PrimaryType       `json:"primaryType"`
	Mixins             []string          `json:"mixins,omitempty"`
	SourceID           string            `json:"sourceId"`
	SourceRepositoryID string            `json:"sourceRepositoryId"`
	Paths              []string          `json:"paths"`
	IngestProperties   map[string]any    `json:"ingestProperties"`
	IngestPropertyNames []string         `json:"ingestPropertyNames"`
	ACL                []ACE             `json:"acl"`
	FullText           string            `json:"fullText,omitempty"`
	Embeddings         []Embedding       `json:"embeddings,omitempty"`
	SyncStatus         SyncStatus        `json:"syncStatus"`
}

// HasMixin reports whether the document carries the named mixin.
func (d Document) HasMixin(name string) bool {
	for _, m := range d.Mixins {
		if m == name {
			return true
		}
	}
	return false
}

// QueryResult is the envelope returned by HXQL queries.
type QueryResult struct {
	Documents   []Document `json:"documents"`
	TotalCount  int        `json:"totalCount"`
	Count       int        `json:"count"`
	Offset      int        `json:"offset"`
	Limit       int        `json:"limit"`
}

// ScoredEmbedding is one hit from a vector search.
type ScoredEmbedding struct {
	DocumentID string  `json:"documentId"`
	Score      float64 `json:"score"`
	Embedding  Embedding `json:"embedding"`
}

// PatchOp is one JSON-Patch operation (RFC 6902).
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}
