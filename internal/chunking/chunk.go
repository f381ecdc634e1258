package chunking

import (
	"regexp"
	"strings"
)

// Chunk is an offset-tagged substring of a document's cleaned text, fed to
// the embedding model.
type Chunk struct {
	NodeID      string
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
}

// ID returns the chunk's stable identifier.
func (c Chunk) ID() string {
	return c.NodeID + "_chunk_" + itoa(c.Index)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// AdaptiveOptions configures the heading/paragraph/sentence adaptive
// chunker.
type AdaptiveOptions struct {
	MaxChunkSize int
	MinChunkSize int
}

var (
	headingLine       = regexp.MustCompile(`(?m)^(#{1,6}\s|\s*(chapter|section|article|part)\s+([0-9]+|[ivxlcdm]+)\b|\s*[0-9]+(\.[0-9]+)*\.\s+[A-Z]|[A-Z][A-Z0-9 ]{3,}\s*$)`)
	paragraphSplit    = regexp.MustCompile(`\n\s*\n`)
	sentenceBoundary  = regexp.MustCompile(`[.!?]\s+[A-Z]|\n|;\s+`)
)

// Adaptive splits cleaned text into chunks so that no chunk exceeds
// MaxChunkSize, preferring heading, then paragraph, then sentence
// boundaries, and finally a hard split. Offsets are relative to text.
func Adaptive(nodeID, text string, opt AdaptiveOptions) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sections := splitSections(text)
	var segments []segment
	for _, s := range sections {
		segments = append(segments, refine(s, opt.MaxChunkSize)...)
	}
	return group(nodeID, segments, opt)
}

type segment struct {
	text  string
	start int
	end   int
}

// splitSections splits text into top-level sections at heading boundaries,
// keeping a heading with the content that follows until the next heading.
func splitSections(text string) []segment {
	locs := headingLine.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []segment{{text: text, start: 0, end: len(text)}}
	}
	var out []segment
	start := 0
	if locs[0][0] > 0 {
		out = append(out, segment{text: text[0:locs[0][0]], start: 0, end: locs[0][0]})
		start = locs[0][0]
	}
	for i := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, segment{text: text[start:end], start: start, end: end})
		start = end
	}
	return out
}

// refine recursively splits a segment that exceeds maxChunkSize: paragraph
// boundaries first, then sentence boundaries, then a hard split.
func refine(s segment, maxChunkSize int) []segment {
	if len(s.text) <= maxChunkSize {
		return []segment{s}
	}
	if parts := splitOn(s, paragraphSplit); len(parts) > 1 {
		return refineAll(parts, maxChunkSize)
	}
	if parts := splitOn(s, sentenceBoundary); len(parts) > 1 {
		return refineAll(parts, maxChunkSize)
	}
	return hardSplit(s, maxChunkSize)
}

func refineAll(parts []segment, maxChunkSize int) []segment {
	var out []segment
	for _, p := range parts {
		out = append(out, refine(p, maxChunkSize)...)
	}
	return out
}

// splitOn splits a segment at the boundaries matched by re, preserving
// offsets and dropping whitespace-only pieces.
func splitOn(s segment, re *regexp.Regexp) []segment {
	locs := re.FindAllStringIndex(s.text, -1)
	if len(locs) == 0 {
		return []segment{s}
	}
	var out []segment
	start := 0
	for _, loc := range locs {
		cut := loc[1]
		if cut <= start {
			continue
		}
		piece := s.text[start:cut]
		if strings.TrimSpace(piece) != "" {
			out = append(out, segment{text: piece, start: s.start + start, end: s.start + cut})
		}
		start = cut
	}
	if start < len(s.text) {
		piece := s.text[start:]
		if strings.TrimSpace(piece) != "" {
			out = append(out, segment{text: piece, start: s.start + start, end: s.end})
		}
	}
	if len(out) == 0 {
		return []segment{s}
	}
	return out
}

// hardSplit splits at maxChunkSize, preferring the last space within the
// second half of the window.
func hardSplit(s segment, maxChunkSize int) []segment {
	var out []segment
	text := s.text
	offset := 0
	for len(text) > maxChunkSize {
		window := text[:maxChunkSize]
		cut := maxChunkSize
		if i := strings.LastIndex(window[maxChunkSize/2:], " "); i >= 0 {
			cut = maxChunkSize/2 + i
		}
		if cut <= 0 {
			cut = maxChunkSize
		}
		out = append(out, segment{text: text[:cut], start: s.start + offset, end: s.start + offset + cut})
		text = text[cut:]
		offset += cut
	}
	if len(text) > 0 {
		out = append(out, segment{text: text, start: s.start + offset, end: s.end})
	}
	return out
}

// group accumulates consecutive refined segments into chunks while
// accumulated+next+1 <= maxChunkSize. A buffer below minChunkSize keeps
// absorbing segments only while they fit; maxChunkSize always wins.
func group(nodeID string, segments []segment, opt AdaptiveOptions) []Chunk {
	var chunks []Chunk
	index := 0
	var buf strings.Builder
	bufStart := -1
	bufEnd := 0
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			NodeID:      nodeID,
			Text:        buf.String(),
			Index:       index,
			StartOffset: bufStart,
			EndOffset:   bufEnd,
		})
		index++
		buf.Reset()
		bufStart = -1
	}
	for _, seg := range segments {
		trimmed := strings.TrimSpace(seg.text)
		if trimmed == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(trimmed)+1 > opt.MaxChunkSize {
			flush()
		}
		if bufStart == -1 {
			bufStart = seg.start
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(trimmed)
		bufEnd = seg.end
	}
	flush()
	return chunks
}

// FixedWindow advances by chunkSize characters, snapping the end to the
// last space within the window, and starts the next chunk at end-overlap.
// overlap < chunkSize is enforced here and forces start = end whenever
// start would not otherwise advance, preventing infinite loops.
func FixedWindow(nodeID, text string, chunkSize, overlap int) []Chunk {
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []Chunk
	index := 0
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else if i := strings.LastIndex(text[start:end], " "); i > 0 {
			end = start + i
		}
		piece := text[start:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{NodeID: nodeID, Text: piece, Index: index, StartOffset: start, EndOffset: end})
			index++
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
