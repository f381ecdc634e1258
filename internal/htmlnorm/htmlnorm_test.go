package htmlnorm

import (
	"strings"
	"testing"
)

func TestNormalize_ExtractsArticleAndConvertsToMarkdown(t *testing.T) {
	html := `<html><head><title>Doc</title></head><body>
<nav>Home | About</nav>
<article><h1>Quarterly Report</h1><p>Revenue grew <strong>12%</strong> year over year.</p></article>
<footer>copyright 2026</footer>
</body></html>`

	md, err := Normalize(html, "https://example.com/reports/q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "Revenue grew") {
		t.Fatalf("expected article text in output, got: %q", md)
	}
	if strings.Contains(md, "copyright 2026") {
		t.Fatalf("expected footer boilerplate stripped, got: %q", md)
	}
}

func TestNormalize_EmptyInputDoesNotError(t *testing.T) {
	if _, err := Normalize("", ""); err != nil {
		t.Fatalf("unexpected error on empty input: %v", err)
	}
}
