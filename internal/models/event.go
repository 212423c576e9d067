// Package models defines the core domain entities for hubbub.
// These models represent activity events pulled from an organization feed and the
// frames of pixel colors rendered from them.
//
// Terminology (matching GitHub's own naming):
//   - Event: a single activity record (push, issue, pull request, ...).
//   - Actor: the account login that triggered the event.
package models

import (
	"errors"
	"strings"
	"time"
)

// typeSuffix is stripped from event types before color rule lookup
const typeSuffix = "Event"

// Event is an immutable activity record once ingested.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`  // e.g. "PushEvent"
	Actor     string         `json:"actor"` // actor login
	Repo      string         `json:"repo"`  // owner/name
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Kind returns the event type with its trailing "Event" classification removed,
// the key used for color rule lookup.
func (e *Event) Kind() string {
	return strings.TrimSuffix(e.Type, typeSuffix)
}

// PayloadValue returns a top-level payload field; ok is false when absent.
func (e *Event) PayloadValue(key string) (any, bool) {
	if e.Payload == nil {
		return nil, false
	}
	v, ok := e.Payload[key]
	return v, ok
}

// PayloadPath walks nested payload objects, e.g. PayloadPath("pull_request", "merged_at").
// A missing key or a non-object along the way yields ok=false.
func (e *Event) PayloadPath(keys ...string) (any, bool) {
	var cur any = e.Payload
	for _, k := range keys {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, exists := m[k]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Validate checks that the fields required for ingestion are present
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Type == "" {
		return errors.New("event type must not be empty")
	}
	if e.CreatedAt.IsZero() {
		return errors.New("event created_at must be set")
	}
	return nil
}
