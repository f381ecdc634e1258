// Package discovery walks the configured source repository roots and
// yields a lazy, restartable stream of documents that pass the configured
// type, mimetype, aspect-exclusion, and path-glob filters.
package discovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/aborroy/alfresco-lake-bridge/internal/sourceclient"
)

// RootConfig describes one configured traversal root.
type RootConfig struct {
	FolderID  string
	Recursive bool
	Types     []string
	MimeTypes []string
}

// ExclusionConfig is the process-wide exclusion filter.
type ExclusionConfig struct {
	Aspects []string
	Paths   []string // glob patterns, '*' matches any run of characters
}

// sourceLister is the subset of sourceclient.Client discovery depends on.
type sourceLister interface {
	ListAllChildren(ctx context.Context, folderID string) ([]sourceclient.Node, error)
}

// Walker produces a lazy stream of documents across configured roots.
type Walker struct {
	source    sourceLister
	roots     []RootConfig
	exclusion ExclusionConfig

	excludedGlobs []*regexp.Regexp
}

// New constructs a Walker. Each invocation of Stream restarts traversal
// from the beginning of the configured roots.
func New(source sourceLister, roots []RootConfig, exclusion ExclusionConfig) *Walker {
	w := &Walker{source: source, roots: roots, exclusion: exclusion}
	for _, pattern := range exclusion.Paths {
		w.excludedGlobs = append(w.excludedGlobs, globToRegexp(pattern))
	}
	return w
}

func globToRegexp(glob string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(glob)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	return regexp.MustCompile("^" + escaped + "$")
}

func (w *Walker) pathExcluded(path string) bool {
	for _, re := range w.excludedGlobs {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func aspectExcluded(nodeAspects, excludedAspects []string) bool {
	if len(excludedAspects) == 0 {
		return false
	}
	excluded := make(map[string]bool, len(excludedAspects))
	for _, a := range excludedAspects {
		excluded[a] = true
	}
	for _, a := range nodeAspects {
		if excluded[a] {
			return true
		}
	}
	return false
}

func typeMatches(types []string, nodeType string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == nodeType {
			return true
		}
	}
	return false
}

func mimeTypeMatches(mimeTypes []string, nodeMimeType string) bool {
	if len(mimeTypes) == 0 {
		return true
	}
	if nodeMimeType == "" {
		return false
	}
	for _, m := range mimeTypes {
		if m == nodeMimeType {
			return true
		}
	}
	return false
}

// eligible reports whether a file node should be yielded, per §4.4's four
// conditions.
func (w *Walker) eligible(root RootConfig, node sourceclient.Node) bool {
	if !typeMatches(root.Types, node.NodeType) {
		return false
	}
	if !mimeTypeMatches(root.MimeTypes, node.MimeType) {
		return false
	}
	if aspectExcluded(node.AspectNames, w.exclusion.Aspects) {
		return false
	}
	if w.pathExcluded(node.Path.Name) {
		return false
	}
	return true
}

// Stream traverses every configured root and sends each eligible document
// to yield. It stops early if yield returns false or ctx is cancelled.
func (w *Walker) Stream(ctx context.Context, yield func(sourceclient.Node) bool) error {
	for _, root := range w.roots {
		if err := w.walkFolder(ctx, root, root.FolderID, yield); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkFolder(ctx context.Context, root RootConfig, folderID string, yield func(sourceclient.Node) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, err := w.source.ListAllChildren(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.IsFolder {
			if root.Recursive {
				if err := w.walkFolder(ctx, root, child.ID, yield); err != nil {
					return err
				}
			}
			continue
		}
		if !w.eligible(root, child) {
			continue
		}
		if !yield(child) {
			return nil
		}
	}
	return nil
}
