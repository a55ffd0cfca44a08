package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_NormalizesHeadings(t *testing.T) {
	input := `# Title

Intro text.

Section A
---------

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	out, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(out, "\n")
	var headings []string
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			headings = append(headings, line)
		}
	}

	want := []string{"# Title", "## Section A", "### Subsection A1"}
	if len(headings) != len(want) {
		t.Fatalf("expected headings %v, got %v", want, headings)
	}
	for i := range want {
		if headings[i] != want[i] {
			t.Errorf("heading %d: expected %q, got %q", i, want[i], headings[i])
		}
	}

	if !strings.Contains(out, "Intro text.") {
		t.Error("body text lost")
	}
	if !strings.Contains(out, "Subsection A1 content.") {
		t.Error("nested body text lost")
	}
}

func TestMarkdownParser_EmitsEachBlockOnce(t *testing.T) {
	input := "# Title\n\nIntro text.\n\n- item one\n- item two\n"
	p := &MarkdownParser{}
	out, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Intro text.", "item one", "item two"} {
		if got := strings.Count(out, want); got != 1 {
			t.Errorf("expected %q exactly once, found %d times in %q", want, got, out)
		}
	}
	if !strings.Contains(out, "item one\nitem two") {
		t.Errorf("list items not line-separated: %q", out)
	}
}

func TestMarkdownParser_BlockquoteAndNestedList(t *testing.T) {
	input := "> quoted line\n\n- outer\n  - inner\n"
	p := &MarkdownParser{}
	out, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"quoted line", "outer", "inner"} {
		if got := strings.Count(out, want); got != 1 {
			t.Errorf("expected %q exactly once, found %d times in %q", want, got, out)
		}
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	p := &MarkdownParser{}
	out, err := p.Parse(strings.NewReader("just a paragraph\n\nand another"), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "#") {
		t.Errorf("no headings expected, got %q", out)
	}
	if !strings.Contains(out, "just a paragraph") || !strings.Contains(out, "and another") {
		t.Errorf("paragraphs lost: %q", out)
	}
}
