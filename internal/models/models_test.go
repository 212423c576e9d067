package models

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "valid event",
			event: Event{
				ID:        "1001",
				Type:      "PushEvent",
				Actor:     "octocat",
				CreatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name:    "empty ID",
			event:   Event{Type: "PushEvent", CreatedAt: time.Now()},
			wantErr: true,
		},
		{
			name:    "empty type",
			event:   Event{ID: "1001", CreatedAt: time.Now()},
			wantErr: true,
		},
		{
			name:    "zero created_at",
			event:   Event{ID: "1001", Type: "PushEvent"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventKind(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"PushEvent", "Push"},
		{"PullRequestReviewCommentEvent", "PullRequestReviewComment"},
		{"Event", ""},
		{"Custom", "Custom"},
	}
	for _, tt := range tests {
		e := Event{Type: tt.typ}
		if got := e.Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestEventPayloadPath(t *testing.T) {
	e := Event{Payload: map[string]any{
		"action": "closed",
		"pull_request": map[string]any{
			"merged_at": "2026-10-19T10:00:00Z",
			"number":    float64(7),
		},
	}}

	if v, ok := e.PayloadPath("pull_request", "merged_at"); !ok || v != "2026-10-19T10:00:00Z" {
		t.Errorf("PayloadPath(pull_request.merged_at) = %v, %v", v, ok)
	}
	if _, ok := e.PayloadPath("action", "nested"); ok {
		t.Errorf("expected ok=false walking into a string")
	}
	if _, ok := e.PayloadPath("missing"); ok {
		t.Errorf("expected ok=false for missing key")
	}

	var empty Event
	if _, ok := empty.PayloadValue("action"); ok {
		t.Errorf("expected ok=false on nil payload")
	}
}

func TestFrameSetIgnoresOutOfRange(t *testing.T) {
	var f Frame
	red := RGB{R: 255}
	f.Set(Cols-1, Rows-1, red)
	f.Set(Cols, 0, red)
	f.Set(0, -1, red)

	if f.At(Cols-1, Rows-1) != red {
		t.Errorf("bottom-right pixel not set")
	}
	if f.At(0, 0) != Black {
		t.Errorf("top-left pixel unexpectedly set")
	}
	if red.Hex() != "#ff0000" {
		t.Errorf("Hex() = %s", red.Hex())
	}
}
