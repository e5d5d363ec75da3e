package internal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/post"
	"github.com/starford/quire/internal/testutil"
)

func checkConfig(c *testutil.Content) *Config {
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = slog.LevelError + 4
	cfg.Content.PostsPath = c.PostsDir
	cfg.Content.ImagesPath = c.ImagesDir
	return cfg
}

func TestCheck_Report(t *testing.T) {
	c := testutil.TestContent(t)
	c.WritePost(t, "a", testutil.Markdown("A", "a", "2024-01-01", "body", "go"))
	c.WriteVariant(t, "a", "en", testutil.Markdown("A", "a", "2024-01-01", "body"))
	c.WritePost(t, "b", testutil.Markdown("B", "b", "someday", "body"))

	var out bytes.Buffer
	if err := Check(context.Background(), WithConfig(checkConfig(c)), WithOutput(&out)); err != nil {
		t.Fatalf("Check: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("report = %q", out.String())
	}
	if lines[0] != "ko\tposts=2\tvariants=2\tundated=1\ttags=1" {
		t.Errorf("ko line = %q", lines[0])
	}
	if lines[1] != "en\tposts=2\tvariants=1\tundated=1\ttags=0" {
		t.Errorf("en line = %q", lines[1])
	}
}

func TestCheck_LoadFailure(t *testing.T) {
	c := testutil.TestContent(t)
	testutil.WriteFile(t, filepath.Join(c.PostsDir, "bad", "index.md"), "---\ntitle: only title\n---\n")

	err := Check(context.Background(), WithConfig(checkConfig(c)), WithOutput(&bytes.Buffer{}))
	if !errors.Is(err, post.ErrMissingMetadata) {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}
}

func TestCheck_MissingImagesDirIsAllowed(t *testing.T) {
	c := testutil.TestContent(t)
	c.WritePost(t, "a", testutil.Markdown("A", "a", "2024-01-01", "body"))
	cfg := checkConfig(c)
	cfg.Content.ImagesPath = filepath.Join(t.TempDir(), "missing")

	if err := Check(context.Background(), WithConfig(cfg), WithOutput(&bytes.Buffer{})); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
