// Package colors maps feed events to display colors using a configurable rule table.
//
// A rule is either a Literal color for the whole event kind, or a Conditional set
// that inspects payload fields in table order. Pull requests get one structural
// override: a closed pull request with a merge timestamp takes the "merged" color
// configured under its action rules, since "merged" is never a literal payload value.
// Events by the highlighted actor are brightened by half.
package colors

import (
	"math"

	"github.com/spf13/cast"

	"github.com/rewired-gh/hubbub/internal/models"
)

const (
	pullRequestType = "PullRequestEvent"
	overrideField   = "action"
	overrideValue   = "merged"
	highlightFactor = 1.5
)

// Resolver resolves event colors against a fixed table
type Resolver struct {
	table *Table
}

// NewResolver creates a resolver; a nil table resolves everything to black
func NewResolver(t *Table) *Resolver {
	if t == nil {
		t = NewTable()
	}
	return &Resolver{table: t}
}

// Resolve returns the color for e, brightened when highlight is non-empty and
// equals the event's actor.
func (r *Resolver) Resolve(e *models.Event, highlight string) models.RGB {
	c := r.base(e)
	if highlight != "" && e.Actor == highlight {
		c = Brighten(c)
	}
	return c
}

func (r *Resolver) base(e *models.Event) models.RGB {
	rule, ok := r.table.Lookup(e.Kind())
	if !ok {
		return models.Black
	}

	switch rule := rule.(type) {
	case Literal:
		return rule.Color
	case Conditional:
		c, _ := matchConditional(rule, e)
		if merged, ok := rule.Lookup(overrideField, overrideValue); ok && isMergedPullRequest(e) {
			return merged
		}
		return c
	default:
		return models.Black
	}
}

// matchConditional looks up the first payload field present in e; later fields
// are not consulted even when its value has no color.
func matchConditional(rule Conditional, e *models.Event) (models.RGB, bool) {
	for _, f := range rule.Fields {
		raw, ok := e.PayloadValue(f.Field)
		if !ok || raw == nil {
			continue
		}
		val, err := cast.ToStringE(raw)
		if err != nil {
			return models.Black, false
		}
		for _, vc := range f.Values {
			if vc.Value == val {
				return vc.Color, true
			}
		}
		return models.Black, false
	}
	return models.Black, false
}

func isMergedPullRequest(e *models.Event) bool {
	if e.Type != pullRequestType {
		return false
	}
	action, _ := e.PayloadValue("action")
	if s, _ := action.(string); s != "closed" {
		return false
	}
	mergedAt, ok := e.PayloadPath("pull_request", "merged_at")
	return ok && mergedAt != nil
}

// Brighten multiplies each channel by 1.5, rounding to the nearest integer
// before clamping to 255.
func Brighten(c models.RGB) models.RGB {
	ch := func(v uint8) uint8 {
		return uint8(math.Min(255, math.Round(float64(v)*highlightFactor)))
	}
	return models.RGB{R: ch(c.R), G: ch(c.G), B: ch(c.B)}
}
