package github

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rewired-gh/hubbub/internal/models"
)

const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// FeedOptions selects the organization event stream
type FeedOptions struct {
	Org string
	// User is the logged-in login, required unless PublicOnly; its org feed includes private events
	User       string
	PublicOnly bool
	PerPage    int
}

// Feed iterates an organization's events newest first, page by page.
// Refresh rewinds to the newest page; with conditional set the next first-page
// request carries the last ETag and an unchanged feed yields an empty batch.
type Feed struct {
	client  *Client
	first   string
	next    string
	pending []models.Event
	done    bool

	etag        string
	// staged holds the first-page ETag until the batch that fetched it succeeds
	staged      string
	conditional bool
}

// NewFeed creates a feed for the org events endpoint
func NewFeed(c *Client, o FeedOptions) (*Feed, error) {
	if o.Org == "" {
		return nil, fmt.Errorf("github feed requires an organization")
	}
	if o.PerPage <= 0 {
		o.PerPage = defaultPerPage
	}
	if o.PerPage > maxPerPage {
		o.PerPage = maxPerPage
	}

	var path string
	switch {
	case o.PublicOnly:
		path = fmt.Sprintf("/orgs/%s/events", url.PathEscape(o.Org))
	case o.User != "":
		path = fmt.Sprintf("/users/%s/events/orgs/%s", url.PathEscape(o.User), url.PathEscape(o.Org))
	default:
		return nil, fmt.Errorf("github feed for %s needs a user unless public_only is set", o.Org)
	}

	return &Feed{
		client: c,
		first:  fmt.Sprintf("%s?per_page=%d", path, o.PerPage),
	}, nil
}

// Path returns the first-page request path
func (f *Feed) Path() string { return f.first }

// NextBatch returns up to limit further events, following pagination links.
// It returns an empty batch once the feed is exhausted until Refresh is called.
func (f *Feed) NextBatch(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	for len(f.pending) < limit && !f.done {
		if err := f.fetchPage(ctx); err != nil {
			f.staged = ""
			return nil, err
		}
	}
	if f.staged != "" {
		f.etag, f.staged = f.staged, ""
	}

	n := min(limit, len(f.pending))
	batch := f.pending[:n:n]
	f.pending = f.pending[n:]
	return batch, nil
}

func (f *Feed) fetchPage(ctx context.Context) error {
	target, etag := f.next, ""
	if target == "" {
		target = f.first
		if f.conditional {
			etag = f.etag
		}
	}

	var page []APIEvent
	newETag, link, notModified, err := f.client.getJSON(ctx, target, etag, &page)
	if err != nil {
		return err
	}
	if notModified {
		f.done = true
		return nil
	}

	if target == f.first && newETag != "" {
		f.staged = newETag
	}
	f.pending = append(f.pending, ToEvents(page)...)
	f.next = nextLink(link)
	if f.next == "" || len(page) == 0 {
		f.done = true
	}
	return nil
}

// Refresh rewinds the feed to its newest page
func (f *Feed) Refresh(conditional bool) {
	f.next = ""
	f.pending = nil
	f.done = false
	f.staged = ""
	f.conditional = conditional
}
