package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/watcher"
)

func TestSweep_RelocatesExistingFiles(t *testing.T) {
	ep, downloads, base := newRealProcessor(t, 0)

	files := map[string]string{
		"report.pdf":            "pdf",
		"photo.jpg":             "jpeg",
		"notes.xyz":             "?",
		"movie.mkv.crdownload":  "partial",
		".hidden.pdf":           "secret",
		"installer.dmg.part.ok": "odd but complete",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(downloads, name), []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(downloads, "album.pdf"), 0o755))

	stats, err := ep.Sweep(context.Background(), downloads)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Moved)
	assert.Equal(t, int64(2), stats.Skipped, "notes.xyz and installer.dmg.part.ok are unclassified")
	assert.Zero(t, stats.Failed)

	assert.FileExists(t, filepath.Join(base, "docs", today(), "report.pdf"))
	assert.FileExists(t, filepath.Join(base, "pictures", today(), "photo.jpg"))
	assert.FileExists(t, filepath.Join(downloads, "notes.xyz"))
	assert.FileExists(t, filepath.Join(downloads, "movie.mkv.crdownload"), "in-progress files are never touched")
	assert.FileExists(t, filepath.Join(base, "docs", today(), ".hidden.pdf"), "dot files are moved unless configured otherwise")
	assert.DirExists(t, filepath.Join(downloads, "album.pdf"))
}

func TestSweep_MissingRoot(t *testing.T) {
	ep, _, base := newRealProcessor(t, 0)

	_, err := ep.Sweep(context.Background(), filepath.Join(base, "missing"))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrIO))
}

func TestSweep_Cancelled(t *testing.T) {
	ep, downloads, _ := newRealProcessor(t, time.Hour)
	src := filepath.Join(downloads, "report.pdf")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	stats, err := ep.Sweep(ctx, downloads)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Moved)
	assert.FileExists(t, src)
}

func TestSweep_TriggeredByOverflow(t *testing.T) {
	ep, downloads, base := newRealProcessor(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(downloads, "missed.pdf"), []byte("pdf"), 0o644))

	events := make(chan watcher.Event)
	errs := make(chan error, 1)
	errs <- fmt.Errorf("inotify: %w", watcher.ErrOverflow)
	close(errs)
	close(events)

	require.NoError(t, ep.Run(context.Background(), events, errs))

	assert.FileExists(t, filepath.Join(base, "docs", today(), "missed.pdf"))
}
