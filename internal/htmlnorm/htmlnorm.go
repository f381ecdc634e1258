// Package htmlnorm normalizes source HTML documents into markdown-shaped
// plain text before they reach the chunker: readability strips navigation
// and boilerplate down to the main article, then the result is converted
// to Markdown so headings survive into the adaptive chunker's section
// splitting.
package htmlnorm

import (
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// Normalize extracts the main article from an HTML document (falling back
// to the full document when extraction finds nothing) and converts it to
// Markdown. docURL seeds relative-link resolution; it may be empty.
func Normalize(html, docURL string) (string, error) {
	articleHTML := html
	var title string

	base, _ := url.Parse(docURL)
	if art, err := readability.FromReader(strings.NewReader(html), base); err == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(baseOrigin(docURL)))
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}

	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}

func baseOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
