package splitter

import (
	"strings"
	"testing"
)

func TestSplit_ChunkAndMetaParity(t *testing.T) {
	inputs := []string{
		"",
		"no headers at all",
		"# A\nbody\n## B\nmore",
		"# Big\n" + strings.Repeat("para one\n\n", 50),
	}
	for _, input := range inputs {
		res := Split(input, DefaultConfig())
		if len(res.Chunks) != len(res.Meta) {
			t.Errorf("input %q: %d chunks but %d metadata entries", truncateForMsg(input), len(res.Chunks), len(res.Meta))
		}
	}
}

func TestSplit_WholeSectionBecomesOneChunk(t *testing.T) {
	res := Split("# Intro\nshort body\n# Next\nother body", DefaultConfig())

	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}
	if res.Chunks[0] != "# Intro\nshort body" {
		t.Errorf("unexpected first chunk %q", res.Chunks[0])
	}
	m := res.Meta[0]
	if m.CatalogPath != "Intro" || m.CatalogTitle != "Intro" || m.CatalogLevel != 1 {
		t.Errorf("unexpected metadata %+v", m)
	}
	if m.IsSubchunk || m.SubChunkIndex != 0 {
		t.Errorf("whole section must not be a subchunk: %+v", m)
	}
}

func TestSplit_OversizedSectionRepartitioned(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Large\n\n")
	for i := 0; i < 10; i++ {
		b.WriteString(strings.Repeat("x", 40))
		b.WriteString("\n\n")
	}

	res := Split(b.String(), Config{MaxChunkSize: 100})

	if len(res.Chunks) < 2 {
		t.Fatalf("expected section to be repartitioned, got %d chunks", len(res.Chunks))
	}
	for i, m := range res.Meta {
		if !m.IsSubchunk {
			t.Errorf("chunk %d: expected is_subchunk", i)
		}
		if m.SubChunkIndex != i {
			t.Errorf("chunk %d: expected sub index %d, got %d", i, i, m.SubChunkIndex)
		}
		if m.CatalogPath != "Large" {
			t.Errorf("chunk %d: expected catalog path Large, got %q", i, m.CatalogPath)
		}
	}
}

func TestSplit_OversizedParagraphKeptWhole(t *testing.T) {
	para := strings.Repeat("y", 500)
	res := Split("# S\n\n"+para, Config{MaxChunkSize: 100})

	found := false
	for _, c := range res.Chunks {
		if c == para {
			found = true
		}
	}
	if !found {
		t.Errorf("a single oversized paragraph must become its own chunk, got %d chunks", len(res.Chunks))
	}
}

func TestSplit_FallbackWithoutHeaders(t *testing.T) {
	res := Split("first paragraph\n\nsecond paragraph", DefaultConfig())

	if res.Catalog.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d nodes", res.Catalog.Len())
	}
	if len(res.Chunks) == 0 {
		t.Fatal("expected fallback to produce at least one chunk")
	}
	for _, m := range res.Meta {
		if m.CatalogPath != UncategorizedPath || m.CatalogTitle != UncategorizedPath {
			t.Errorf("expected uncategorized metadata, got %+v", m)
		}
		if m.CatalogLevel != 0 {
			t.Errorf("expected level 0 for fallback, got %d", m.CatalogLevel)
		}
	}
}

func TestSplit_EmptyTextYieldsNothing(t *testing.T) {
	res := Split("   \n\n  ", DefaultConfig())
	if len(res.Chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %d", len(res.Chunks))
	}
}

func TestSplit_MinChunkSizeIsAdvisory(t *testing.T) {
	// A tiny section is still emitted; no minimum-size merging happens.
	res := Split("# T\nx", Config{MinChunkSize: 1000, MaxChunkSize: 2000})
	if len(res.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.Chunks))
	}
}

func TestGroupParagraphs_GreedyAccumulation(t *testing.T) {
	groups := groupParagraphs("aaaa\n\nbbbb\n\ncccc", 11)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	if groups[0] != "aaaa\n\nbbbb" {
		t.Errorf("unexpected first group %q", groups[0])
	}
	if groups[1] != "cccc" {
		t.Errorf("unexpected second group %q", groups[1])
	}
}

func truncateForMsg(s string) string {
	if len(s) > 30 {
		return s[:30] + "..."
	}
	return s
}
