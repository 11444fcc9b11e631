// Package document extracts the text of a contract file.
package document

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"contractqa/internal/domain"
)

// ErrNoText is returned when a file has no extractable text layer.
var ErrNoText = errors.New("document has no extractable text")

// Loader reads .pdf, .txt and .md files.
type Loader struct{}

var _ domain.DocumentLoader = Loader{}

// NewLoader creates a document loader.
func NewLoader() Loader { return Loader{} }

// Load extracts the text of the file at path. Metadata carries the file name
// under "source" and, for PDFs, the page count under "pages".
func (Loader) Load(path string) (domain.Document, error) {
	doc := domain.Document{
		ID:       hashString(path),
		Path:     path,
		Metadata: map[string]string{"source": filepath.Base(path)},
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, pages, err := extractPDF(path)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Content = text
		doc.Metadata["pages"] = strconv.Itoa(pages)
	case ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Document{}, err
		}
		doc.Content = string(data)
	default:
		return domain.Document{}, fmt.Errorf("unsupported document type %q (want .pdf, .txt or .md)", filepath.Ext(path))
	}
	if strings.TrimSpace(doc.Content) == "" {
		return domain.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoText)
	}
	return doc, nil
}

// Resolve expands a glob to the first matching file. A pattern that matches
// nothing is returned unchanged so Load reports the real error.
func Resolve(pattern string) string {
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return pattern
	}
	return matches[0]
}

func extractPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("failed to extract plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", 0, fmt.Errorf("failed to read text: %w", err)
	}
	return buf.String(), r.NumPage(), nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
