package catalog

import (
	"regexp"
	"strings"
)

// Node is one header-delimited section. Nodes live in a Catalog's arena and
// reference each other by index, so the tree carries no pointer cycles.
type Node struct {
	Level     int    // Header depth 1-6.
	Title     string // Header text, trimmed.
	StartLine int    // Zero-based line of the header, inclusive.
	EndLine   int    // Zero-based last line of the section, inclusive. -1 while open.
	Parent    int    // Arena index of the enclosing node, -1 at the root.
	Children  []int  // Arena indices of directly nested nodes, in document order.
}

// Closed reports whether the node's extent has been finalized.
func (n *Node) Closed() bool { return n.EndLine >= 0 }

// Catalog is the ordered section tree of a document. Nodes appear in
// document order; Roots lists the indices of top-level sections.
type Catalog struct {
	Nodes []Node
	Roots []int
}

// Path returns the full hierarchical path of the node at index i,
// root-to-node titles joined with " > ".
func (c *Catalog) Path(i int) string {
	var titles []string
	for j := i; j >= 0; j = c.Nodes[j].Parent {
		titles = append(titles, c.Nodes[j].Title)
	}
	for l, r := 0, len(titles)-1; l < r; l, r = l+1, r-1 {
		titles[l], titles[r] = titles[r], titles[l]
	}
	return strings.Join(titles, " > ")
}

// Len returns the number of sections.
func (c *Catalog) Len() int { return len(c.Nodes) }

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Extract scans headered text line by line and builds the section tree.
// It returns the catalog and a copy of the text where every header line is
// followed by an anchor comment carrying the section's full path. The anchors
// are traceability aids only; line indices in the returned nodes refer to the
// original input.
//
// A header at level L closes every open section whose level is >= L at the
// line just before the header. End of input closes whatever remains open at
// the final line. Text with no headers yields an empty catalog.
func Extract(text string) (*Catalog, string) {
	lines := strings.Split(text, "\n")
	cat := &Catalog{}
	var stack []int // indices of open nodes
	annotated := make([]string, 0, len(lines))

	for i, line := range lines {
		m := headerRe.FindStringSubmatch(line)
		if m == nil {
			annotated = append(annotated, line)
			continue
		}
		level := len(m[1])
		title := strings.TrimSpace(m[2])

		// Close and pop everything at this level or deeper.
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if cat.Nodes[top].Level < level {
				break
			}
			if !cat.Nodes[top].Closed() {
				cat.Nodes[top].EndLine = i - 1
			}
			stack = stack[:len(stack)-1]
		}

		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		idx := len(cat.Nodes)
		cat.Nodes = append(cat.Nodes, Node{
			Level:     level,
			Title:     title,
			StartLine: i,
			EndLine:   -1,
			Parent:    parent,
		})
		if parent >= 0 {
			cat.Nodes[parent].Children = append(cat.Nodes[parent].Children, idx)
		} else {
			cat.Roots = append(cat.Roots, idx)
		}
		stack = append(stack, idx)

		annotated = append(annotated, line+"\n<!-- catalog:"+cat.Path(idx)+" -->")
	}

	// Close whatever is still open at the last line.
	last := len(lines) - 1
	for _, idx := range stack {
		if !cat.Nodes[idx].Closed() {
			cat.Nodes[idx].EndLine = last
		}
	}

	return cat, strings.Join(annotated, "\n")
}
