package models

import (
	"errors"
	"fmt"
)

var ErrInvalidCapacity = errors.New("feed capacity must be positive")

type FeedEntry struct {
	// ID is the streaming-session key. Empty means the entry can never be replaced.
	ID string `json:"id,omitempty"`
	// Content is the display text.
	Content string `json:"content"`
	// Partial marks an entry that a later update with the same ID is expected to revise.
	Partial bool `json:"partial,omitempty"`
	// Kind is a display class (chat, reply, censored...). It plays no part in the identity rule.
	Kind string `json:"kind,omitempty"`
}

// BoundedFeed is an ordered, capacity-bounded log of display entries, oldest first.
// It is not safe for concurrent use; the owning registry serialises access.
type BoundedFeed struct {
	// key identifies the channel this feed belongs to.
	key string
	// capacity is the maximum number of retained entries.
	capacity int
	// entries holds the retained entries in insertion order.
	entries []FeedEntry
}

func NewBoundedFeed(key string, capacity int) (*BoundedFeed, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("feed %q capacity %d: %w", key, capacity, ErrInvalidCapacity)
	}
	return &BoundedFeed{
		key,
		capacity,
		make([]FeedEntry, 0, capacity),
	}, nil
}

func (f *BoundedFeed) Key() string {
	return f.key
}

func (f *BoundedFeed) Capacity() int {
	return f.capacity
}

func (f *BoundedFeed) Len() int {
	return len(f.entries)
}

// Append adds entry to the feed. If entry carries an ID equal to the ID of the newest entry, the newest entry is
// revised in place and the length is unchanged. Otherwise the entry is pushed and, if that overflows the capacity,
// the oldest entry is evicted. It reports whether an existing entry was replaced.
func (f *BoundedFeed) Append(entry FeedEntry) (replaced bool) {
	if entry.ID != "" && len(f.entries) > 0 {
		last := &f.entries[len(f.entries)-1]
		if last.ID == entry.ID {
			last.Content = entry.Content
			last.Partial = entry.Partial
			if entry.Kind != "" {
				last.Kind = entry.Kind
			}
			return true
		}
	}

	if len(f.entries) == f.capacity {
		// Shift in place so the backing array never grows past capacity.
		copy(f.entries, f.entries[1:])
		f.entries[len(f.entries)-1] = entry
		return false
	}
	f.entries = append(f.entries, entry)
	return false
}

// Snapshot returns a copy of the entries, oldest first.
func (f *BoundedFeed) Snapshot() []FeedEntry {
	out := make([]FeedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Latest returns the newest entry, or the zero entry when the feed is empty.
func (f *BoundedFeed) Latest() FeedEntry {
	if len(f.entries) == 0 {
		return FeedEntry{}
	}
	return f.entries[len(f.entries)-1]
}
