// Package testutil provides shared test helpers for building posts trees and
// an in-memory issue tracker.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/issueblog/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestTree creates a temporary posts tree with a storage.Provider.
func TestTree(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// PostSpec describes a post fixture. Empty ID, Title or Date omit the field.
type PostSpec struct {
	Slug  string
	ID    string
	Title string
	Date  string
	Label string
	Body  string
}

// Source renders the index document for p.
func (p PostSpec) Source() string {
	var b strings.Builder
	b.WriteString("---\n")
	if p.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", p.Title)
	}
	if p.Date != "" {
		fmt.Fprintf(&b, "date: %s\n", p.Date)
	}
	if p.Label != "" {
		fmt.Fprintf(&b, "label: %s\n", p.Label)
	}
	if p.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", p.ID)
	}
	b.WriteString("---\n\n")
	b.WriteString(p.Body)
	b.WriteString("\n")
	return b.String()
}

// WritePost writes p as <root>/<slug>/index.md.
func WritePost(t *testing.T, root string, p PostSpec) {
	t.Helper()
	dir := filepath.Join(root, p.Slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.md"), []byte(p.Source()), 0o644); err != nil {
		t.Fatal(err)
	}
}
