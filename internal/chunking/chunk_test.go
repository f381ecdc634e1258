package chunking

import "testing"

func TestAdaptive_NoChunkExceedsMaxSizeAndIndicesIncrease(t *testing.T) {
	text := "# Heading One\n" + repeat("word ", 200) + "\n\n# Heading Two\n" + repeat("more ", 200)
	chunks := Adaptive("doc1", text, AdaptiveOptions{MaxChunkSize: 300, MinChunkSize: 50})
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if len(c.Text) > 300 {
			t.Fatalf("chunk %d exceeds max size: %d", i, len(c.Text))
		}
		if c.Index != i {
			t.Fatalf("expected strictly increasing indices, got %d at position %d", c.Index, i)
		}
		if c.StartOffset < 0 || c.StartOffset > c.EndOffset || c.EndOffset > len(text) {
			t.Fatalf("invalid offsets on chunk %d: %+v", i, c)
		}
	}
}

func TestAdaptive_EmptyInputProducesNoChunks(t *testing.T) {
	if chunks := Adaptive("doc1", "   \n  ", AdaptiveOptions{MaxChunkSize: 100, MinChunkSize: 10}); len(chunks) != 0 {
		t.Fatalf("expected zero chunks for blank input, got %d", len(chunks))
	}
}

func TestFixedWindow_OverlapLessThanChunkSizeIsEnforced(t *testing.T) {
	text := repeat("a", 500)
	chunks := FixedWindow("doc1", text, 50, 50)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, c := range chunks {
		if c.EndOffset-c.StartOffset > 50 {
			t.Fatalf("chunk exceeds window size: %+v", c)
		}
	}
}

func TestFixedWindow_TerminatesForNonEmptyInput(t *testing.T) {
	text := repeat("word ", 1000)
	chunks := FixedWindow("doc1", text, 100, 20)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	last := chunks[len(chunks)-1]
	if last.EndOffset != len(text) && last.EndOffset < len(text)-1 {
		t.Fatalf("expected traversal to reach end of text, last chunk: %+v (len=%d)", last, len(text))
	}
}

func TestChunk_IDFormat(t *testing.T) {
	c := Chunk{NodeID: "n1", Index: 3}
	if got, want := c.ID(), "n1_chunk_3"; got != want {
		t.Fatalf("unexpected chunk id: got %q want %q", got, want)
	}
}
