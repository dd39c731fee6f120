package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/config"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/guard"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/metrics"
)

// DefaultDebounce is how long the watcher waits after the last write.
const DefaultDebounce = 500 * time.Millisecond

// Reloader watches a profile file and swaps it into a Guard on change.
// A reload that fails to parse or validate leaves the current bounds in force.
type Reloader struct {
	watcher  *fsnotify.Watcher
	guard    *guard.Guard
	metrics  metrics.Metrics
	path     string
	debounce time.Duration

	mu       sync.Mutex
	lastHash string
	onReload func(error)
	commit   CommitFunc
}

// CommitFunc persists an accepted profile and returns its version id.
type CommitFunc func(p *config.Profile, hash string) (string, error)

// New creates a watcher for path. The parent directory is watched so editors
// that replace the file atomically are still seen.
func New(g *guard.Guard, path string, m metrics.Metrics) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat profile %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	if m == nil {
		m = metrics.Noop{}
	}
	r := &Reloader{
		watcher:  watcher,
		guard:    g,
		metrics:  m,
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
	}
	if a := g.Active(); a != nil {
		r.lastHash = a.Hash
	}
	return r, nil
}

// SetDebounce overrides the debounce window. Call before Run.
func (r *Reloader) SetDebounce(d time.Duration) {
	r.debounce = d
}

// OnReload registers a callback invoked after every reload attempt, with the
// error if the attempt was rejected. Call before Run.
func (r *Reloader) OnReload(fn func(error)) {
	r.onReload = fn
}

// SetCommit registers fn to persist every accepted profile before it is
// swapped in. A commit failure is logged and the swap still happens. Call
// before Run.
func (r *Reloader) SetCommit(fn CommitFunc) {
	r.commit = fn
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(r.debounce, func() {
					err := r.Reload()
					if r.onReload != nil {
						r.onReload(err)
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("reload", "file watcher error", "err", err)
		}
	}
}

// Reload reads the profile file and swaps it into the guard if its contents
// changed.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, hash, err := config.LoadProfile(r.path)
	if err != nil {
		r.metrics.ObserveReload(false)
		logging.Error("reload", "profile rejected, keeping current bounds", "path", r.path, "err", err)
		return err
	}
	if hash == r.lastHash {
		return nil
	}
	if err := p.Validate(); err != nil {
		r.metrics.ObserveReload(false)
		logging.Error("reload", "profile rejected, keeping current bounds", "path", r.path, "err", err)
		return err
	}
	versionID := ""
	if r.commit != nil {
		if versionID, err = r.commit(p, hash); err != nil {
			logging.Error("reload", "commit profile failed", "path", r.path, "err", err)
		}
	}
	if err := r.guard.SetProfile(p, hash, versionID); err != nil {
		r.metrics.ObserveReload(false)
		logging.Error("reload", "profile rejected, keeping current bounds", "path", r.path, "err", err)
		return err
	}
	r.lastHash = hash
	r.metrics.ObserveReload(true)
	logging.Info("reload", "profile reloaded", "path", r.path, "name", p.Name, "hash", hash,
		"version", versionID, "dims", len(p.Dimensions))
	return nil
}
