package store

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/ragstore/internal/splitter"
)

// SearchResult is one ranked hit from vector search.
type SearchResult struct {
	Content  string   `json:"content"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// CatalogResult is one matched catalog section group. Content is every member
// chunk joined with a blank line; Chunks keeps the members in stored order.
type CatalogResult struct {
	CatalogPath  string   `json:"catalog_path"`
	CatalogTitle string   `json:"catalog_title"`
	CatalogLevel int      `json:"catalog_level"`
	Content      string   `json:"content"`
	Chunks       []string `json:"chunks"`
	DocumentID   string   `json:"document_id"`
}

// Search ranks stored chunks by cosine similarity against queryVector.
// documentID, when non-empty, restricts the candidate set to one document.
// Candidates are sorted by score, the top 2*topK form an oversampling window,
// and the window is walked in score order dropping anything below threshold
// until topK results are accepted. The returned slice is descending by score
// with every score >= threshold; ties keep scan order. An empty candidate set
// is a normal empty result.
func (s *Store) Search(queryVector []float32, topK int, threshold float64, documentID string) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidatesLocked(documentID)
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	q := normalize(queryVector)
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{idx: i, score: dot(q, normalize(c.Vector))}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	window := 2 * topK
	if window > len(ranked) {
		window = len(ranked)
	}

	var results []SearchResult
	for _, r := range ranked[:window] {
		if r.score < threshold {
			continue
		}
		c := candidates[r.idx]
		results = append(results, SearchResult{
			Content:  c.Content,
			Score:    r.score,
			Metadata: c.Metadata,
		})
		if len(results) >= topK {
			break
		}
	}
	return results
}

// SearchCatalogFulltext matches query case-insensitively against catalog
// paths and titles, falling back to member chunk contents. Candidate chunks
// are grouped by catalog path in first-seen order; each group is emitted at
// most once.
func (s *Store) SearchCatalogFulltext(query string, documentID string) []CatalogResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidatesLocked(documentID)
	if len(candidates) == 0 {
		return nil
	}

	needle := strings.ToLower(query)

	groups := make(map[string][]ChunkRecord)
	var order []string
	for _, c := range candidates {
		path := c.Metadata.CatalogPath
		if path == "" {
			path = splitter.UncategorizedPath
		}
		if _, seen := groups[path]; !seen {
			order = append(order, path)
		}
		groups[path] = append(groups[path], c)
	}

	var results []CatalogResult
	for _, path := range order {
		members := groups[path]
		title := members[0].Metadata.CatalogTitle

		matched := strings.Contains(strings.ToLower(path), needle) ||
			strings.Contains(strings.ToLower(title), needle)
		if !matched {
			for _, c := range members {
				if strings.Contains(strings.ToLower(c.Content), needle) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}

		contents := make([]string, len(members))
		for i, c := range members {
			contents[i] = c.Content
		}
		results = append(results, CatalogResult{
			CatalogPath:  path,
			CatalogTitle: title,
			CatalogLevel: members[0].Metadata.CatalogLevel,
			Content:      strings.Join(contents, "\n\n"),
			Chunks:       contents,
			DocumentID:   members[0].DocumentID,
		})
	}
	return results
}

// candidatesLocked selects chunks for one search. Caller holds a read lock.
func (s *Store) candidatesLocked(documentID string) []ChunkRecord {
	if documentID == "" {
		return s.chunks
	}
	var out []ChunkRecord
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out
}

const normEpsilon = 1e-10

// normalize returns v scaled to unit L2 norm. The epsilon keeps zero vectors
// from dividing by zero; they score ~0 against everything.
func normalize(v []float32) []float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
