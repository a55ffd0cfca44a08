package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into headered markdown-style text.
// Headings are emitted as leading-# lines so every format feeds the same
// catalog extraction path downstream.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

var contentTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ForFile returns the appropriate parser and content type for a filename.
func ForFile(filename string) (Parser, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, contentTypes[ext], nil
	case ".md", ".markdown":
		return &MarkdownParser{}, contentTypes[ext], nil
	case ".csv":
		return &CSVParser{}, contentTypes[ext], nil
	case ".html", ".htm":
		return &HTMLParser{}, contentTypes[ext], nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, contentTypes[ext], nil
	case ".docx":
		return &DOCXParser{}, contentTypes[ext], nil
	default:
		return nil, "", fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// heading renders a markdown heading line at the given level (clamped to 1-6).
func heading(level int, title string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + title
}
