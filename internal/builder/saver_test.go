package builder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSaveSingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})

	c := NewSaveCoordinator(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return nil
	})

	go func() { _, _ = c.Save(context.Background()) }()
	<-started

	// Second save while the first is pending must be dropped, and the
	// caller must be told it was.
	ran, err := c.Save(context.Background())
	if err != nil {
		t.Fatalf("overlapping save must no-op, got %v", err)
	}
	if ran {
		t.Fatal("overlapping save must report ran=false")
	}
	close(release)

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("first save never completed")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly one save call, got %d", got)
	}
}

func TestSaveSuccessClearsDirty(t *testing.T) {
	c := NewSaveCoordinator(func(ctx context.Context) error { return nil })
	c.MarkDirty()
	c.Stop() // kill the debounce timer; we drive Save directly

	if !c.Dirty() {
		t.Fatal("MarkDirty must set dirty")
	}
	if _, err := c.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Dirty() {
		t.Error("successful save must clear dirty")
	}
	if c.LastSaved().IsZero() {
		t.Error("successful save must set LastSaved")
	}
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	c := NewSaveCoordinator(func(ctx context.Context) error { return errors.New("backend down") })
	c.MarkDirty()
	c.Stop()

	if _, err := c.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	if !c.Dirty() {
		t.Error("failed save must keep the dirty flag")
	}
	if !c.LastSaved().IsZero() {
		t.Error("failed save must not touch LastSaved")
	}
}

func TestMarkDirtyDuringSaveKeepsDirty(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := NewSaveCoordinatorWithIntervals(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, time.Hour, time.Hour)
	defer c.Stop()

	done := make(chan struct{})
	go func() {
		_, _ = c.Save(context.Background())
		close(done)
	}()
	<-started

	// An edit lands while the save is flushing an older document. The
	// completing save must not swallow it.
	c.MarkDirty()
	close(release)
	<-done

	if !c.Dirty() {
		t.Error("edit during in-flight save must survive as dirty")
	}
}

func TestDebouncedSaveCollapsesBursts(t *testing.T) {
	var calls int32
	c := NewSaveCoordinatorWithIntervals(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 20*time.Millisecond, time.Hour)
	defer c.Stop()

	for i := 0; i < 5; i++ {
		c.MarkDirty()
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("debounced save never fired")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	// Quiet period: no further saves should fire.
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("burst of edits must collapse to one save, got %d", got)
	}
}

func TestAutoSaveFiresWhenDirty(t *testing.T) {
	var calls int32
	c := NewSaveCoordinatorWithIntervals(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, time.Hour, 15*time.Millisecond)
	defer c.Stop()

	c.mu.Lock()
	c.dirty = true // set directly to avoid arming the debounce timer
	c.mu.Unlock()
	c.StartAutoSave()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("autosave never fired")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestStatusDerivation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := NewSaveCoordinator(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})

	if got := c.Status(); got != "" {
		t.Errorf("fresh coordinator status = %q, want empty", got)
	}

	c.MarkDirty()
	c.Stop()
	if got := c.Status(); got != "Unsaved changes" {
		t.Errorf("dirty status = %q", got)
	}

	go func() { _, _ = c.Save(context.Background()) }()
	<-started
	if got := c.Status(); got != "Saving…" {
		t.Errorf("in-flight status = %q", got)
	}
	close(release)

	deadline := time.After(time.Second)
	for c.LastSaved().IsZero() {
		select {
		case <-deadline:
			t.Fatal("save never completed")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	want := "Saved at " + c.LastSaved().Format("15:04")
	if got := c.Status(); got != want {
		t.Errorf("saved status = %q, want %q", got, want)
	}
}
