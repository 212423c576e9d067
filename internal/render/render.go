// Package render turns the events held by a view into frames on a display.
//
// Two views share the Strategy interface:
//
//	stream     one pixel per event, oldest at the top-left, newest at the bottom-right,
//	           scrolling a full row off the top when the matrix fills up
//	punchcard  one row per wall-clock hour (newest at the bottom), one column per
//	           7.5 minute bucket, brightness proportional to event density
//
// Each view owns its own event list; the shared event window only hands new
// events over through AddEvents.
package render

import (
	"fmt"
	"time"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/display"
	"github.com/rewired-gh/hubbub/internal/models"
)

// View names accepted by New
const (
	ViewStream    = "stream"
	ViewPunchcard = "punchcard"
)

// Strategy is a visualization of a time-ordered set of events
type Strategy interface {
	// Name returns the view name
	Name() string
	// AddEvents applies the today-only filter, then AddEvent per surviving event
	AddEvents(batch []models.Event)
	// AddEvent stores one event, applying the view's eviction policy
	AddEvent(e models.Event)
	// Events returns a copy of the stored events
	Events() []models.Event
	// Render pushes a complete frame and commits it; no-op without events
	Render() error
}

// Options configures a view. Zero values pick the view's defaults.
type Options struct {
	// TodayOnly overrides the view default when non-nil
	TodayOnly *bool
	// Highlight is the actor whose events are brightened (stream only)
	Highlight string
	// FrameDelay paces punchcard hue animation frames
	FrameDelay time.Duration

	Now   func() time.Time
	Rand  func(n int) int
	Sleep func(time.Duration)
}

// New builds the named view
func New(view string, d display.Driver, res *colors.Resolver, opts Options) (Strategy, error) {
	switch view {
	case ViewStream, "":
		return NewStream(d, res, opts), nil
	case ViewPunchcard:
		return NewPunchcard(d, opts), nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

// base holds the behaviour shared by every view
type base struct {
	maxEvents int // 0 means unbounded
	todayOnly bool
	now       func() time.Time
	display   display.Driver
	events    []models.Event
}

func newBase(d display.Driver, maxEvents int, todayDefault bool, opts Options) base {
	b := base{
		maxEvents: maxEvents,
		todayOnly: todayDefault,
		now:       opts.Now,
		display:   d,
	}
	if opts.TodayOnly != nil {
		b.todayOnly = *opts.TodayOnly
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// filterToday drops events not created on the current local date when todayOnly is set
func (b *base) filterToday(batch []models.Event) []models.Event {
	if !b.todayOnly {
		return batch
	}
	now := b.now()
	out := make([]models.Event, 0, len(batch))
	for _, e := range batch {
		if sameDay(e.CreatedAt, now) {
			out = append(out, e)
		}
	}
	return out
}

// prune re-applies the today filter to stored events once the date rolls over
func (b *base) prune() {
	if b.todayOnly {
		b.events = b.filterToday(b.events)
	}
}

// Events returns a copy of the stored events
func (b *base) Events() []models.Event {
	out := make([]models.Event, len(b.events))
	copy(out, b.events)
	return out
}

// push writes every pixel of f and commits it
func (b *base) push(f models.Frame) error {
	for y := 0; y < models.Rows; y++ {
		for x := 0; x < models.Cols; x++ {
			b.display.SetPixel(x, y, f.At(x, y))
		}
	}
	return b.display.Show()
}

func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
