// Package testutil provides shared test helpers for building content fixtures
// and databases.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/storage"
)

// Content is a temporary posts root and images root.
type Content struct {
	PostsDir  string
	ImagesDir string
	Posts     *storage.FS
	Images    *storage.FS
}

// TestContent creates empty posts and images directories.
func TestContent(t *testing.T) *Content {
	t.Helper()
	root := t.TempDir()
	c := &Content{
		PostsDir:  filepath.Join(root, "posts"),
		ImagesDir: filepath.Join(root, "images"),
	}
	for _, d := range []string{c.PostsDir, c.ImagesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	var err error
	if c.Posts, err = storage.NewFS(c.PostsDir); err != nil {
		t.Fatal(err)
	}
	if c.Images, err = storage.NewFS(c.ImagesDir); err != nil {
		t.Fatal(err)
	}
	return c
}

// Markdown builds a post file with the required front-matter keys.
func Markdown(title, description, date, body string, tags ...string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	fmt.Fprintf(&b, "description: %q\n", description)
	fmt.Fprintf(&b, "date: %q\n", date)
	if len(tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(tags, ", "))
	}
	b.WriteString("---\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}

// WritePost writes <posts>/<id>/index.md.
func (c *Content) WritePost(t *testing.T, id, markdown string) {
	t.Helper()
	WriteFile(t, filepath.Join(c.PostsDir, id, "index.md"), markdown)
}

// WriteVariant writes <posts>/<id>/index.<locale>.md.
func (c *Content) WriteVariant(t *testing.T, id, locale, markdown string) {
	t.Helper()
	WriteFile(t, filepath.Join(c.PostsDir, id, "index."+locale+".md"), markdown)
}

// WriteImage writes <images>/<id>/<name>.
func (c *Content) WriteImage(t *testing.T, id, name string) {
	t.Helper()
	WriteFile(t, filepath.Join(c.ImagesDir, id, name), "fake-image-"+name)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestDB creates a temporary SQLite index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
