package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func TestCollectPDFs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "A.PDF"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.pdf"))
	touch(t, filepath.Join(root, ".hidden", "d.pdf"))
	touch(t, filepath.Join(root, ".e.pdf"))

	tests := []struct {
		name       string
		skipHidden bool
		want       []string
	}{
		{"skip hidden", true, []string{"A.PDF", "b.pdf", "sub/c.pdf"}},
		{"include hidden", false, []string{".e.pdf", ".hidden/d.pdf", "A.PDF", "b.pdf", "sub/c.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, stats, err := CollectPDFs(root, tt.skipHidden, nil)
			require.NoError(t, err)

			var rel []string
			for _, p := range paths {
				assert.True(t, filepath.IsAbs(p))
				r, err := filepath.Rel(root, p)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
			assert.Equal(t, uint32(len(tt.want)), stats.Matched)
		})
	}
}

func TestCollectPDFsErrors(t *testing.T) {
	_, _, err := CollectPDFs("  ", true, nil)
	assert.Error(t, err)

	_, _, err = CollectPDFs(filepath.Join(t.TempDir(), "missing"), true, nil)
	assert.Error(t, err)
}

func TestWatcherEmitsExistingAndNewPDFs(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no watcher event")
			return ""
		}
	}

	assert.Equal(t, existing, next())

	touch(t, filepath.Join(root, "ignored.txt"))
	created := filepath.Join(root, "new.pdf")
	touch(t, created)
	assert.Equal(t, created, next())

	cancel()
	for range events {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
