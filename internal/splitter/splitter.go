package splitter

import (
	"strings"

	"github.com/dgallion1/ragstore/internal/catalog"
)

// UncategorizedPath labels chunks that did not come from a catalog section.
const UncategorizedPath = "uncategorized"

// ChunkMeta is the structural metadata attached to one emitted chunk.
type ChunkMeta struct {
	CatalogPath   string
	CatalogTitle  string
	CatalogLevel  int
	SubChunkIndex int  // Position within the owning section's sub-chunks.
	IsSubchunk    bool // True when the section was repartitioned by size.
}

// Config controls splitting behavior.
type Config struct {
	MinChunkSize int // Advisory only; no minimum-size merging is performed.
	MaxChunkSize int // Character budget per chunk before a section is repartitioned.
}

// DefaultConfig returns the defaults the original service shipped with.
func DefaultConfig() Config {
	return Config{
		MinChunkSize: 200,
		MaxChunkSize: 2000,
	}
}

// Result is the output of one Split call. Chunks and Meta always have the
// same length, ordered by catalog node order with sub-chunks in local order.
type Result struct {
	Catalog *catalog.Catalog
	Chunks  []string
	Meta    []ChunkMeta
}

// Split extracts the catalog from text and slices it into retrievable chunks.
// Sections whose character count exceeds MaxChunkSize are repartitioned into
// greedy paragraph groups. When no section produces a chunk (no headers, or
// every section empty) the whole text falls back to paragraph grouping under
// the uncategorized path.
func Split(text string, cfg Config) Result {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultConfig().MaxChunkSize
	}

	cat, _ := catalog.Extract(text)
	lines := strings.Split(text, "\n")

	res := Result{Catalog: cat}

	for i := range cat.Nodes {
		node := &cat.Nodes[i]
		if !node.Closed() {
			continue
		}
		section := strings.TrimSpace(strings.Join(lines[node.StartLine:node.EndLine+1], "\n"))
		if section == "" {
			continue
		}

		if len(section) > cfg.MaxChunkSize {
			for sub, part := range groupParagraphs(section, cfg.MaxChunkSize) {
				res.Chunks = append(res.Chunks, part)
				res.Meta = append(res.Meta, ChunkMeta{
					CatalogPath:   cat.Path(i),
					CatalogTitle:  node.Title,
					CatalogLevel:  node.Level,
					SubChunkIndex: sub,
					IsSubchunk:    true,
				})
			}
		} else {
			res.Chunks = append(res.Chunks, section)
			res.Meta = append(res.Meta, ChunkMeta{
				CatalogPath:  cat.Path(i),
				CatalogTitle: node.Title,
				CatalogLevel: node.Level,
			})
		}
	}

	if len(res.Chunks) == 0 {
		for _, part := range groupParagraphs(text, cfg.MaxChunkSize) {
			res.Chunks = append(res.Chunks, part)
			res.Meta = append(res.Meta, ChunkMeta{
				CatalogPath:  UncategorizedPath,
				CatalogTitle: UncategorizedPath,
			})
		}
	}

	return res
}

// groupParagraphs splits content on blank lines and greedily accumulates
// paragraphs up to maxSize characters per group. A single paragraph larger
// than maxSize becomes its own group; the budget is not enforced within a
// paragraph.
func groupParagraphs(content string, maxSize int) []string {
	var paragraphs []string
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var groups []string
	var current []string
	size := 0

	for _, para := range paragraphs {
		if size+len(para) > maxSize && len(current) > 0 {
			groups = append(groups, strings.Join(current, "\n\n"))
			current = []string{para}
			size = len(para)
		} else {
			current = append(current, para)
			size += len(para) + 2 // account for the joining blank line
		}
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, "\n\n"))
	}

	return groups
}
