// Package sourceclient is a typed wrapper over the enterprise source
// repository's REST API: paginated children, content streaming to a temp
// file, read-authority extraction from permission records, a cached
// repository id, and group listing for a user.
package sourceclient

import "time"

// Node is the projection of a source repository entry this bridge cares
// about.
type Node struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        Path      `json:"path"`
	NodeType    string    `json:"nodeType"`
	MimeType    string    `json:"mimeType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Permissions Permissions `json:"permissions"`
	IsFolder    bool      `json:"isFolder"`
	AspectNames []string  `json:"aspectNames"`
}

// Path carries the node's name within its hierarchy; source repositories
// typically expose it under entry.path.name.
type Path struct {
	Name string `json:"name"`
}

// Permissions is the permission record returned alongside a node.
type Permissions struct {
	Inherited  bool         `json:"isInheritanceEnabled"`
	Locally    []Authority  `json:"locallySet"`
	Inherited_ []Authority  `json:"inherited"`
}

// Authority is one access-control entry on a node's permission record.
type Authority struct {
	AuthorityID  string `json:"authorityId"`
	Name         string `json:"name"`
	AccessStatus string `json:"accessStatus"` // "ALLOWED" or "DENIED"
}

// rolesAllowingRead enumerates the roles that confer read access, per the
// source repository's role model.
var rolesAllowingRead = map[string]bool{
	"Consumer":     true,
	"Contributor":  true,
	"Collaborator": true,
	"Coordinator":  true,
	"Manager":      true,
}

// ChildrenPage is one page of a folder's children listing.
type ChildrenPage struct {
	Entries   []Node
	HasMoreItems bool
}

// Group is a membership entry returned by the groups endpoint.
type Group struct {
	ID string `json:"id"`
}
