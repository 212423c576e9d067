package github

import (
	"time"

	"github.com/rewired-gh/hubbub/internal/models"
)

// User is the subset of a GitHub user document we use
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// APIEvent is a GitHub activity event as returned by the events endpoints
type APIEvent struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	} `json:"actor"`
	Repo struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"repo"`
	Public    bool           `json:"public"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Event converts the API document to the domain event
func (e APIEvent) Event() models.Event {
	return models.Event{
		ID:        e.ID,
		Type:      e.Type,
		Actor:     e.Actor.Login,
		Repo:      e.Repo.Name,
		CreatedAt: e.CreatedAt,
		Payload:   e.Payload,
	}
}

// ToEvents converts a page of API events, skipping ones that fail validation
func ToEvents(in []APIEvent) []models.Event {
	out := make([]models.Event, 0, len(in))
	for _, ae := range in {
		e := ae.Event()
		if e.Validate() != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
