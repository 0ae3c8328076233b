package processor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/id"
	"github.com/listenupapp/dropsort/internal/relocator"
	"github.com/listenupapp/dropsort/internal/watcher"
)

// Sweep relocates the files already sitting directly inside root, applying the
// same filters as the watcher. Each file goes through ProcessEvent, so a sweep
// running next to a live watch never moves a file twice.
func (ep *EventProcessor) Sweep(ctx context.Context, root string) (Stats, error) {
	root = filepath.Clean(root)

	entries, err := os.ReadDir(root)
	if err != nil {
		return Stats{}, domainerrors.Wrapf(err, domainerrors.CodeIO, "list %s", root)
	}

	sweepID, err := id.Generate(id.SweepPrefix)
	if err != nil {
		sweepID = id.SweepPrefix + "-unknown"
	}
	log := ep.logger.With("sweep", sweepID, "root", root)
	log.Info("sweep started", "entries", len(entries))
	start := time.Now()

	var (
		mu    sync.Mutex
		stats Stats
		wg    sync.WaitGroup
	)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		event := watcher.Event{
			Kind:  watcher.EventCreated,
			Path:  filepath.Join(root, entry.Name()),
			IsDir: entry.IsDir(),
		}
		if reason := ep.opts.Filter.SkipReason(root, event); reason != "" {
			log.Debug("sweep ignoring entry", "path", event.Path, "reason", reason)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			out := ep.ProcessEvent(ctx, event)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case out.Status == relocator.StatusMoved:
				stats.Moved++
			case out.Status == relocator.StatusFailed:
				stats.Failed++
			case out.Reason == ReasonCoalesced:
				stats.Coalesced++
			default:
				stats.Skipped++
			}
		}()
	}
	wg.Wait()

	log.Info("sweep finished",
		"moved", stats.Moved,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, ctx.Err()
}
