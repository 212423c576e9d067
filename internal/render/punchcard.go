package render

import (
	"math"
	"math/rand"
	"time"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/display"
	"github.com/rewired-gh/hubbub/internal/models"
)

const (
	// lightnessCap keeps the busiest bucket short of white
	lightnessCap = 0.8
	// lightnessBoost keeps any non-empty bucket visibly lit
	lightnessBoost = 0.075
	saturation     = 1.0
	hueRange       = 360
)

// bucketWidth is the number of minutes covered by one column
const bucketWidth = 60.0 / models.Cols

// slot identifies one (hour, bucket) cell
type slot struct {
	hour   time.Time
	bucket int
}

// PunchcardView is an hour by minute-bucket density map drawn in a single hue.
// The hue drifts one degree per frame towards a new random hue whenever new
// events arrived since the last render.
type PunchcardView struct {
	base
	hue        int
	dirty      bool
	frameDelay time.Duration
	rand       func(n int) int
	sleep      func(time.Duration)
}

// NewPunchcard creates a punch card view; it keeps only today's events unless
// TodayOnly is set to false
func NewPunchcard(d display.Driver, opts Options) *PunchcardView {
	p := &PunchcardView{
		base:       newBase(d, 0, true, opts),
		frameDelay: opts.FrameDelay,
		rand:       opts.Rand,
		sleep:      opts.Sleep,
	}
	if p.rand == nil {
		p.rand = rand.Intn
	}
	if p.sleep == nil {
		p.sleep = time.Sleep
	}
	p.hue = p.rand(hueRange)
	return p
}

func (p *PunchcardView) Name() string { return ViewPunchcard }

func (p *PunchcardView) AddEvents(batch []models.Event) {
	for _, e := range p.filterToday(batch) {
		p.AddEvent(e)
	}
}

// AddEvent stores e; the punch card has no capacity limit
func (p *PunchcardView) AddEvent(e models.Event) {
	p.events = append(p.events, e)
	p.dirty = true
}

// Hue returns the hue of the last rendered frame
func (p *PunchcardView) Hue() int { return p.hue }

// Bucket returns the column for a minute-of-hour timestamp
func Bucket(t time.Time) int {
	minute := float64(t.Minute()) + float64(t.Second())/60
	b := int(math.Floor(minute / bucketWidth))
	if b >= models.Cols {
		b = models.Cols - 1
	}
	return b
}

func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// counts tallies stored events per slot and returns the largest tally
func (p *PunchcardView) counts(loc *time.Location) (map[slot]int, int) {
	counts := make(map[slot]int)
	peak := 0
	for _, e := range p.events {
		t := e.CreatedAt.In(loc)
		k := slot{hour: hourStart(t), bucket: Bucket(t)}
		counts[k]++
		if counts[k] > peak {
			peak = counts[k]
		}
	}
	return counts, peak
}

// Lightness maps a density in [0,1] to HSL lightness
func Lightness(value float64) float64 {
	value = math.Min(value, lightnessCap)
	if value > 0 {
		value = lightnessBoost + value*(1-lightnessBoost)
	}
	return value
}

// compose draws the last Rows hours ending at the current one in the given hue
func (p *PunchcardView) compose(now time.Time, hue int, counts map[slot]int, peak int) models.Frame {
	var f models.Frame
	current := hourStart(now)
	for row := 0; row < models.Rows; row++ {
		hour := hourStart(current.Add(-time.Duration(models.Rows-1-row) * time.Hour))
		for col := 0; col < models.Cols; col++ {
			value := 0.0
			if n := counts[slot{hour: hour, bucket: col}]; n > 0 && peak > 0 {
				value = float64(n) / float64(peak)
			}
			f.Set(col, row, colors.FromHSL(float64(hue), saturation, Lightness(value)))
		}
	}
	return f
}

// Compose returns the frame at the current hue; ok is false with no events
func (p *PunchcardView) Compose() (models.Frame, bool) {
	if len(p.events) == 0 {
		return models.Frame{}, false
	}
	now := p.now()
	counts, peak := p.counts(now.Location())
	if peak == 0 {
		return models.Frame{}, false
	}
	return p.compose(now, p.hue, counts, peak), true
}

// hueSteps walks one degree at a time from one hue to another, excluding the start
func hueSteps(from, to int) []int {
	if from == to {
		return []int{to}
	}
	step := 1
	if to < from {
		step = -1
	}
	steps := make([]int, 0, abs(to-from))
	for h := from + step; h != to+step; h += step {
		steps = append(steps, h)
	}
	return steps
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Render draws the punch card. With new events since the last call it animates
// towards a fresh random hue, one committed frame per degree.
func (p *PunchcardView) Render() error {
	p.prune()
	if len(p.events) == 0 {
		return nil
	}
	now := p.now()
	counts, peak := p.counts(now.Location())
	if peak == 0 {
		return nil
	}

	hues := []int{p.hue}
	if p.dirty {
		hues = hueSteps(p.hue, p.rand(hueRange))
	}
	for i, h := range hues {
		if i > 0 && p.frameDelay > 0 {
			p.sleep(p.frameDelay)
		}
		if err := p.push(p.compose(now, h, counts, peak)); err != nil {
			return err
		}
		p.hue = h
	}
	p.dirty = false
	return nil
}
