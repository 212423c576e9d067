package storage

import (
	"container/list"
	"time"
)

// SeenSet remembers event IDs that have been ingested.
// With maxKeys and ttl both zero it never forgets anything; otherwise it is an
// LRU bounded by maxKeys whose entries also expire after ttl.
type SeenSet struct {
	maxKeys int
	ttl     time.Duration
	now     func() time.Time

	ll    *list.List               // most-recent at front
	items map[string]*list.Element // id -> element
}

type seenEntry struct {
	id  string
	exp time.Time
}

// NewSeenSet creates a seen set; zero values disable the respective bound
func NewSeenSet(maxKeys int, ttl time.Duration) *SeenSet {
	if maxKeys < 0 {
		maxKeys = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &SeenSet{
		maxKeys: maxKeys,
		ttl:     ttl,
		now:     time.Now,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
}

// Bounded reports whether the set may forget ids
func (s *SeenSet) Bounded() bool {
	return s.maxKeys > 0 || s.ttl > 0
}

// Seen reports whether id was marked and has not been evicted
func (s *SeenSet) Seen(id string) bool {
	el, ok := s.items[id]
	if !ok {
		return false
	}
	if s.ttl > 0 && !s.now().Before(el.Value.(seenEntry).exp) {
		s.ll.Remove(el)
		delete(s.items, id)
		return false
	}
	return true
}

// Mark records id, refreshing its position and expiry if already present
func (s *SeenSet) Mark(id string) {
	exp := time.Time{}
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}
	if el, ok := s.items[id]; ok {
		el.Value = seenEntry{id: id, exp: exp}
		s.ll.MoveToFront(el)
		return
	}
	s.items[id] = s.ll.PushFront(seenEntry{id: id, exp: exp})
	s.evict()
}

func (s *SeenSet) evict() {
	for s.maxKeys > 0 && s.ll.Len() > s.maxKeys {
		s.removeBack()
	}
	if s.ttl == 0 {
		return
	}
	now := s.now()
	for {
		back := s.ll.Back()
		if back == nil || now.Before(back.Value.(seenEntry).exp) {
			return
		}
		s.removeBack()
	}
}

func (s *SeenSet) removeBack() {
	back := s.ll.Back()
	if back == nil {
		return
	}
	s.ll.Remove(back)
	delete(s.items, back.Value.(seenEntry).id)
}

// Len returns the number of remembered ids
func (s *SeenSet) Len() int { return len(s.items) }
