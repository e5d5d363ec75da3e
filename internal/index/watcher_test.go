package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, roots []string, debounce time.Duration) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var calls atomic.Int32
	go Watch(ctx, roots, debounce, quietLogger(), func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	return &calls
}

func TestWatcher_FileChangeTriggersCallback(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, []string{root}, 50*time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "post.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "callback not called after file write")
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, []string{root}, 300*time.Millisecond)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(root, "post.md"), []byte{byte('a' + i)}, 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "callback not called after burst")
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback calls = %d, want 1", n)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, []string{root}, 50*time.Millisecond)

	sub := filepath.Join(root, "new-post")
	_ = os.MkdirAll(sub, 0o755)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "directory creation not reported")

	before := calls.Load()
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "index.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() > before
	}, "file in new subdir not reported")
}

func TestWatcher_HiddenFilesIgnored(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, []string{root}, 50*time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, ".index.md.swp"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "draft.md~"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback calls = %d, want 0", n)
	}
}

func TestWatcher_MultipleRoots(t *testing.T) {
	posts, images := t.TempDir(), t.TempDir()
	calls := startWatch(t, []string{posts, images}, 50*time.Millisecond)

	_ = os.WriteFile(filepath.Join(images, "thumbnail.png"), []byte("img"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "change in second root not reported")
}
