package builder

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultDebounce collapses bursts of edits into one save.
	DefaultDebounce = time.Second
	// DefaultAutoSave is the idle interval between background saves.
	DefaultAutoSave = 30 * time.Second
)

// SaveFunc performs the actual persistence of the session.
type SaveFunc func(ctx context.Context) error

// SaveCoordinator schedules saves for a session. It guarantees single
// flight: a save requested while one is in-flight is dropped, not queued.
// Dirty state is set by edits and cleared only on save success.
type SaveCoordinator struct {
	mu       sync.Mutex
	saveFn   SaveFunc
	debounce time.Duration
	autosave time.Duration

	inFlight  bool
	dirty     bool
	seq       uint64
	lastSaved time.Time

	timer *time.Timer
	done  chan struct{}
	now   func() time.Time
}

// NewSaveCoordinator wires saveFn with the default debounce and autosave
// intervals.
func NewSaveCoordinator(saveFn SaveFunc) *SaveCoordinator {
	return NewSaveCoordinatorWithIntervals(saveFn, DefaultDebounce, DefaultAutoSave)
}

// NewSaveCoordinatorWithIntervals is the constructor tests use to shrink
// the timers.
func NewSaveCoordinatorWithIntervals(saveFn SaveFunc, debounce, autosave time.Duration) *SaveCoordinator {
	return &SaveCoordinator{
		saveFn:   saveFn,
		debounce: debounce,
		autosave: autosave,
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// MarkDirty records an edit and (re)schedules a debounced save.
func (c *SaveCoordinator) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.Save(ctx); err != nil {
			log.Printf("builder: debounced save failed: %v", err)
		}
	})
	c.mu.Unlock()
}

// Save runs one save now. If a save is already in-flight the request is
// dropped and Save reports ran=false so the caller can reschedule with
// MarkDirty. A MarkDirty that lands while a save is in flight keeps the
// dirty flag set after that save completes.
func (c *SaveCoordinator) Save(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return false, nil
	}
	c.inFlight = true
	seq := c.seq
	c.mu.Unlock()

	err := c.saveFn(ctx)

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		if c.seq == seq {
			c.dirty = false
		}
		c.lastSaved = c.now()
	}
	c.mu.Unlock()
	return true, err
}

// StartAutoSave runs background saves whenever the session sits dirty for
// a full idle interval. Stop once per coordinator.
func (c *SaveCoordinator) StartAutoSave() {
	go func() {
		ticker := time.NewTicker(c.autosave)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.mu.Lock()
				dirty := c.dirty
				c.mu.Unlock()
				if !dirty {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := c.Save(ctx); err != nil {
					log.Printf("builder: autosave failed: %v", err)
				}
				cancel()
			}
		}
	}()
}

// Stop cancels pending debounce timers and the autosave loop.
func (c *SaveCoordinator) Stop() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	close(c.done)
}

// Dirty reports whether there are unsaved changes.
func (c *SaveCoordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// LastSaved returns the time of the last successful save.
func (c *SaveCoordinator) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// Status derives the user-facing save state. It is computed, never stored:
// "Saving…" while in-flight, "Unsaved changes" when dirty, the last save
// time once one exists, otherwise empty.
func (c *SaveCoordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.inFlight:
		return "Saving…"
	case c.dirty:
		return "Unsaved changes"
	case !c.lastSaved.IsZero():
		return "Saved at " + c.lastSaved.Format("15:04")
	default:
		return ""
	}
}
