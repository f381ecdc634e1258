// Package chunking reduces noise in extracted text and splits it into
// offset-tagged chunks for embedding, using either an adaptive
// heading/paragraph/sentence strategy or a fixed-window fallback.
package chunking

import (
	"regexp"
	"strings"
)

var (
	horizontalWS     = regexp.MustCompile(`[ \t\v\f\r]+`)
	dotRuns          = regexp.MustCompile(`[.\x{00B7}\x{2026}]{5,}`)
	dashRuns         = regexp.MustCompile(`[-_=]{5,}`)
	pageNumberLine   = regexp.MustCompile(`(?i)^\s*(page\s+\d+|p\.\d+|\d+\s+of\s+\d+|\d+/\d+|-\s*\d+\s*-|\d{1,4})\s*$`)
	boilerplateLine  = regexp.MustCompile(`(?i)(confidential|draft|internal use only|do not distribute|privileged|copyright|all rights reserved|printed on|generated on|last (updated|modified))`)
	fourPlusNewlines = regexp.MustCompile(`\n{4,}`)
)

// encodingArtifacts lists the runes dropped outright: NUL, form-feed, BOM,
// soft hyphen, zero-width space/joiners, and the Unicode line/paragraph
// separators.
var encodingArtifacts = map[rune]bool{
	'\x00': true, '\x0c': true, '\U0000FEFF': true, '\U000000AD': true,
	'\U0000200B': true, '\U0000200C': true, '\U0000200D': true,
	'\U00002028': true, '\U00002029': true,
}

// CleanOptions toggles the aggressive, frequency-based boilerplate pass.
type CleanOptions struct {
	Aggressive bool
}

// Clean runs the deterministic noise-reduction pipeline. It is idempotent:
// Clean(Clean(x)) == Clean(x).
func Clean(text string, opt CleanOptions) string {
	text = dropEncodingArtifacts(text)
	text = collapseLongRuns(text)
	text = collapseWhitespaceRuns(text)
	text = removeMatchingLines(text, pageNumberLine)
	text = removeMatchingLines(text, boilerplateLine)
	if opt.Aggressive {
		text = removeFrequentLines(text)
	}
	text = fourPlusNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func dropEncodingArtifacts(text string) string {
	return strings.Map(func(r rune) rune {
		if encodingArtifacts[r] {
			return -1
		}
		return r
	}, text)
}

// collapseLongRuns collapses any run of a single repeated character longer
// than 10 to empty (it carries no information).
func collapseLongRuns(text string) string {
	var b strings.Builder
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i <= 10 {
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return b.String()
}

func collapseWhitespaceRuns(text string) string {
	text = horizontalWS.ReplaceAllString(text, " ")
	text = dotRuns.ReplaceAllString(text, " ")
	text = dashRuns.ReplaceAllString(text, " ")
	return text
}

func removeMatchingLines(text string, re *regexp.Regexp) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, ln := range lines {
		if re.MatchString(strings.TrimSpace(ln)) {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

// removeFrequentLines drops lines of length [4, 99] whose frequency across
// the document is at least max(3, lineCount/7) — recurring running
// headers/footers that the fixed pattern list above doesn't catch.
func removeFrequentLines(text string) string {
	lines := strings.Split(text, "\n")
	counts := make(map[string]int, len(lines))
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if n := len(trimmed); n < 4 || n > 99 {
			continue
		}
		counts[trimmed]++
	}
	threshold := len(lines) / 7
	if threshold < 3 {
		threshold = 3
	}
	kept := lines[:0:0]
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if n := len(trimmed); n >= 4 && n <= 99 && counts[trimmed] >= threshold {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}
