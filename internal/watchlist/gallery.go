package watchlist

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pauldevelopai/alibi-sub001/internal/metrics"
)

// Snapshot is an immutable view of the gallery. Matching always runs
// against one snapshot; a reload builds a new one and swaps the
// pointer, so a scan never observes a partially-updated gallery.
type Snapshot struct {
	Entries  []Entry
	LoadedAt time.Time
}

// Gallery owns the current snapshot and its reload schedule.
type Gallery struct {
	store    *Store
	current  atomic.Pointer[Snapshot]
	interval time.Duration
	watch    bool
}

func NewGallery(store *Store, reloadInterval time.Duration, watchFile bool) *Gallery {
	g := &Gallery{
		store:    store,
		interval: reloadInterval,
		watch:    watchFile,
	}
	g.current.Store(&Snapshot{})
	return g
}

// Current never returns nil.
func (g *Gallery) Current() *Snapshot {
	return g.current.Load()
}

// Reload builds a fresh snapshot from the store. Load errors keep the
// previous snapshot in place; the matcher must not lose its gallery
// because one reload failed.
func (g *Gallery) Reload() error {
	entries, err := g.store.LoadAll()
	if err != nil {
		log.Printf("[Gallery] Reload failed, keeping previous snapshot: %v", err)
		return err
	}
	g.current.Store(&Snapshot{Entries: entries, LoadedAt: time.Now()})
	metrics.GallerySize.Set(float64(len(entries)))
	metrics.GalleryReloadsTotal.Inc()
	log.Printf("[Gallery] Loaded %d enrolled entr(ies)", len(entries))
	return nil
}

// StartReloader runs the periodic reload plus an optional fsnotify
// watch on the store file so enrollments propagate without waiting out
// the full interval. Reloads never block the detection cycle; they
// happen on this goroutine and publish via the atomic swap.
func (g *Gallery) StartReloader(ctx context.Context) {
	_ = g.Reload()

	var watcher *fsnotify.Watcher
	if g.watch {
		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			log.Printf("[Gallery] fsnotify unavailable (%v), relying on interval reload", err)
			watcher = nil
		} else if err := watcher.Add(g.store.Path()); err != nil {
			// Store file may not exist yet; the interval reload will
			// pick it up once the first enrollment creates it.
			log.Printf("[Gallery] Cannot watch %s (%v), relying on interval reload", g.store.Path(), err)
			watcher.Close()
			watcher = nil
		}
	}

	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		if watcher != nil {
			defer watcher.Close()
		}

		for {
			if watcher != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = g.Reload()
				case evt, ok := <-watcher.Events:
					if !ok {
						watcher = nil
						continue
					}
					if evt.Op&fsnotify.Write == fsnotify.Write || evt.Op&fsnotify.Create == fsnotify.Create {
						// Debounce: enrollments append a full line but
						// give the writer a beat to finish.
						time.Sleep(100 * time.Millisecond)
						_ = g.Reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						watcher = nil
						continue
					}
					log.Printf("[Gallery] Watcher error: %v", err)
				}
			} else {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = g.Reload()
				}
			}
		}
	}()
}
