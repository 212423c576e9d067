package render

import (
	"sort"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/display"
	"github.com/rewired-gh/hubbub/internal/models"
)

const (
	streamCapacity = models.Rows * models.Cols
	// streamKeep is what survives a scroll: every row but the top one
	streamKeep = models.Cols * (models.Rows - 1)
)

// StreamView shows the most recent events as one pixel each
type StreamView struct {
	base
	resolver  *colors.Resolver
	highlight string
}

// NewStream creates a stream view; it keeps all days unless TodayOnly is set
func NewStream(d display.Driver, res *colors.Resolver, opts Options) *StreamView {
	if res == nil {
		res = colors.NewResolver(nil)
	}
	return &StreamView{
		base:      newBase(d, streamCapacity, false, opts),
		resolver:  res,
		highlight: opts.Highlight,
	}
}

func (s *StreamView) Name() string { return ViewStream }

func (s *StreamView) AddEvents(batch []models.Event) {
	for _, e := range s.filterToday(batch) {
		s.AddEvent(e)
	}
}

// AddEvent appends e. A full matrix first drops its oldest row, so the display
// scrolls by a whole row rather than by one pixel.
func (s *StreamView) AddEvent(e models.Event) {
	if len(s.events) >= streamCapacity {
		kept := make([]models.Event, streamKeep, streamCapacity)
		copy(kept, s.events[len(s.events)-streamKeep:])
		s.events = kept
	}
	s.events = append(s.events, e)
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].CreatedAt.Before(s.events[j].CreatedAt)
	})
}

// Compose builds the frame for the stored events; ok is false when there are none
func (s *StreamView) Compose() (models.Frame, bool) {
	var f models.Frame
	if len(s.events) == 0 {
		return f, false
	}

	shown := s.events
	if s.maxEvents > 0 && len(shown) > s.maxEvents {
		shown = shown[len(shown)-s.maxEvents:]
	}
	for i := range shown {
		x := i % models.Cols
		y := i / models.Rows
		f.Set(x, y, s.resolver.Resolve(&shown[i], s.highlight))
	}
	return f, true
}

func (s *StreamView) Render() error {
	s.prune()
	f, ok := s.Compose()
	if !ok {
		return nil
	}
	return s.push(f)
}
