// Package parser extracts plain text from uploaded document files.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned when no parser can handle the file
type ErrUnsupportedFormat struct {
	Filename string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Filename)
}

// Parser extracts text content from a raw file
type Parser interface {
	// Parse returns the text content of the file
	Parse(data []byte, filename string) (string, error)
}

// PlainText parses UTF-8 text files (.txt, .md and friends)
type PlainText struct{}

// NewPlainText creates a plain text parser
func NewPlainText() *PlainText {
	return &PlainText{}
}

var plainTextExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".log":      true,
}

// Parse returns the file content as a string, validating it is UTF-8
func (p *PlainText) Parse(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !plainTextExtensions[ext] {
		return "", &ErrUnsupportedFormat{Filename: filename}
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %s is not valid UTF-8", filename)
	}
	// strip a UTF-8 BOM if present
	text := strings.TrimPrefix(string(data), "\uFEFF")
	return text, nil
}
