package parser

import (
	"strings"
	"testing"
)

func TestTextParser_NormalizesParagraphs(t *testing.T) {
	input := "first line\nsecond line\n\n\n\nnext paragraph\n"
	p := &TextParser{}
	out, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "first line\nsecond line\n\nnext paragraph"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestTextParser_Empty(t *testing.T) {
	p := &TextParser{}
	out, err := p.Parse(strings.NewReader("   \n\n"), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestForFile(t *testing.T) {
	cases := []struct {
		filename    string
		contentType string
	}{
		{"a.md", "text/markdown"},
		{"b.TXT", "text/plain"},
		{"c.html", "text/html"},
		{"d.pdf", "application/pdf"},
	}
	for _, tc := range cases {
		p, ct, err := ForFile(tc.filename)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.filename, err)
			continue
		}
		if p == nil {
			t.Errorf("%s: nil parser", tc.filename)
		}
		if ct != tc.contentType {
			t.Errorf("%s: expected content type %q, got %q", tc.filename, tc.contentType, ct)
		}
	}

	if _, _, err := ForFile("x.exe"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("x.exe") {
		t.Error("exe must not be supported")
	}
}

func TestHTMLParser_HeadingsAndBody(t *testing.T) {
	input := `<html><head><title>T</title></head><body>
<h1>Main</h1><p>intro</p>
<h2>Sub</h2><p>detail</p>
<script>ignored()</script>
</body></html>`
	p := &HTMLParser{}
	out, err := p.Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# Main", "## Sub", "intro", "detail"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "ignored") {
		t.Errorf("script content leaked: %q", out)
	}
}

func TestCSVParser_BatchesRows(t *testing.T) {
	input := "name,role\nana,dev\nbo,ops\n"
	p := &CSVParser{}
	out, err := p.Parse(strings.NewReader(input), "team.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# Rows 2-3", "Headers: name, role", "name: ana, role: dev"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
