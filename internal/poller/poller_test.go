package poller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/display"
	perr "github.com/rewired-gh/hubbub/internal/errors"
	"github.com/rewired-gh/hubbub/internal/metrics"
	"github.com/rewired-gh/hubbub/internal/models"
	"github.com/rewired-gh/hubbub/internal/render"
	"github.com/rewired-gh/hubbub/internal/storage"
)

var base = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type fakeFeed struct {
	batches   [][]models.Event
	errs      []error
	calls     int
	refreshes []bool
	onFetch   func()
}

func (f *fakeFeed) NextBatch(ctx context.Context, limit int) ([]models.Event, error) {
	i := f.calls
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		b := f.batches[i]
		if len(b) > limit {
			b = b[:limit]
		}
		return b, nil
	}
	return nil, nil
}

func (f *fakeFeed) Refresh(conditional bool) { f.refreshes = append(f.refreshes, conditional) }

type fakeNotifier struct {
	errs       []error
	recoveries []int
	downtimes  []time.Duration
}

func (n *fakeNotifier) SendError(err error) error {
	n.errs = append(n.errs, err)
	return nil
}

func (n *fakeNotifier) SendRecovery(failures int, downtime time.Duration) error {
	n.recoveries = append(n.recoveries, failures)
	n.downtimes = append(n.downtimes, downtime)
	return nil
}

// newestFirst returns events with ids in [from, to) ordered the way the feed serves them
func newestFirst(from, to int) []models.Event {
	out := make([]models.Event, 0, to-from)
	for id := to - 1; id >= from; id-- {
		out = append(out, models.Event{
			ID:        fmt.Sprint(id),
			Type:      "PushEvent",
			Actor:     "octocat",
			CreatedAt: base.Add(time.Duration(id) * time.Minute),
		})
	}
	return out
}

func newStream(d display.Driver) render.Strategy {
	return render.NewStream(d, colors.NewResolver(colors.DefaultTable()), render.Options{})
}

func TestThreePollScenario(t *testing.T) {
	feed := &fakeFeed{batches: [][]models.Event{
		newestFirst(0, 30),
		newestFirst(25, 50), // 5 ids overlap the first poll
		newestFirst(50, 65),
	}}
	window := storage.New()
	mem := display.NewMemory()
	view := newStream(mem)
	p := New(feed, window, view, Options{Metrics: metrics.New()})

	ctx := context.Background()
	var added []int
	for i := 0; i < 3; i++ {
		c := p.RunCycle(ctx)
		if c.FetchErr != nil || c.RenderErr != nil {
			t.Fatalf("cycle %d: %+v", i, c)
		}
		added = append(added, c.Added)
	}

	if fmt.Sprint(added) != "[30 20 15]" {
		t.Errorf("added per cycle = %v", added)
	}
	if window.Len() != 65 {
		t.Errorf("window holds %d events, want 65", window.Len())
	}

	// 64 stored after the 14th event of the last poll; the 15th scrolls one row off
	shown := view.Events()
	if len(shown) != 57 {
		t.Fatalf("stream shows %d events, want 57", len(shown))
	}
	if shown[0].ID != "8" || shown[len(shown)-1].ID != "64" {
		t.Errorf("stream holds %s..%s, want 8..64", shown[0].ID, shown[len(shown)-1].ID)
	}
	for i := 1; i < len(shown); i++ {
		if shown[i].CreatedAt.Before(shown[i-1].CreatedAt) {
			t.Fatal("stream is not time ordered")
		}
	}

	if mem.Shows() != 3 {
		t.Errorf("expected one frame per cycle, got %d", mem.Shows())
	}
	if fmt.Sprint(feed.refreshes) != "[true true true]" {
		t.Errorf("refreshes = %v", feed.refreshes)
	}

	// re-serving an old batch adds nothing
	feed.batches = append(feed.batches, newestFirst(40, 65))
	if c := p.RunCycle(ctx); c.Added != 0 {
		t.Errorf("re-fetched events were added again: %d", c.Added)
	}
}

func TestFetchFailuresNotifyOnStreakEdges(t *testing.T) {
	boom := perr.Unavailablef("github server error 502")
	feed := &fakeFeed{
		errs:    []error{boom, boom, nil},
		batches: [][]models.Event{nil, nil, newestFirst(0, 3)},
	}
	notifier := &fakeNotifier{}
	view := newStream(display.NewMemory())
	p := New(feed, storage.New(), view, Options{Notifier: notifier})

	clock := base
	p.now = func() time.Time { return clock }

	ctx := context.Background()
	c := p.RunCycle(ctx)
	if !errors.Is(c.FetchErr, boom) || c.Added != 0 {
		t.Errorf("failed cycle should be an empty batch: %+v", c)
	}
	clock = clock.Add(time.Minute)
	p.RunCycle(ctx)
	if p.Failures() != 2 || len(notifier.errs) != 1 {
		t.Errorf("failures=%d notifications=%d, want 2 and 1", p.Failures(), len(notifier.errs))
	}

	clock = clock.Add(time.Minute)
	c = p.RunCycle(ctx)
	if c.Added != 3 {
		t.Errorf("recovered cycle added %d", c.Added)
	}
	if p.Failures() != 0 {
		t.Errorf("streak not reset: %d", p.Failures())
	}
	if len(notifier.recoveries) != 1 || notifier.recoveries[0] != 2 || notifier.downtimes[0] != 2*time.Minute {
		t.Errorf("recovery notifications = %v %v", notifier.recoveries, notifier.downtimes)
	}
	if len(feed.refreshes) != 3 {
		t.Errorf("feed should be refreshed after failed cycles too, got %d", len(feed.refreshes))
	}
}

func TestCancelledFetchIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := &fakeFeed{}
	mem := display.NewMemory()
	p := New(feed, storage.New(), newStream(mem), Options{})
	c := p.RunCycle(ctx)
	if !errors.Is(c.FetchErr, context.Canceled) {
		t.Errorf("expected cancellation, got %v", c.FetchErr)
	}
	if p.Failures() != 0 || mem.Shows() != 0 {
		t.Errorf("cancelled cycle should not count or render")
	}
}

type brokenDisplay struct {
	*display.Memory
}

func (brokenDisplay) Show() error { return errors.New("spi write failed") }

func TestRenderErrorDoesNotStopCycle(t *testing.T) {
	feed := &fakeFeed{batches: [][]models.Event{newestFirst(0, 2)}}
	p := New(feed, storage.New(), newStream(brokenDisplay{display.NewMemory()}), Options{})
	c := p.RunCycle(context.Background())
	if c.RenderErr == nil {
		t.Error("expected render error")
	}
	if c.Added != 2 || len(feed.refreshes) != 1 {
		t.Errorf("cycle did not complete: %+v", c)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := &fakeFeed{batches: [][]models.Event{newestFirst(0, 1)}}
	feed.onFetch = cancel

	p := New(feed, storage.New(), newStream(display.NewMemory()), Options{Interval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
