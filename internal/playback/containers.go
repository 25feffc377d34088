// Package playback holds the per-user playback state: listening history,
// the play queue, favorites and named playlists.
//
// The containers themselves are not synchronized; State serializes access
// to one user's containers and Registry shards users so that independent
// users never contend.
package playback

import "catalog-service/internal/catalog"

// HistoryLimit is the number of most recent plays a History keeps.
const HistoryLimit = 50

// History is a bounded stack, most recent last.
type History struct {
	items []catalog.Track
}

func (h *History) Push(t catalog.Track) {
	h.items = append(h.items, t.Clone())
	if len(h.items) > HistoryLimit {
		h.items = append(h.items[:0:0], h.items[len(h.items)-HistoryLimit:]...)
	}
}

func (h *History) Pop() (catalog.Track, bool) {
	if len(h.items) == 0 {
		return catalog.Track{}, false
	}
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last, true
}

func (h *History) Peek() (catalog.Track, bool) {
	if len(h.items) == 0 {
		return catalog.Track{}, false
	}
	return h.items[len(h.items)-1].Clone(), true
}

func (h *History) All() []catalog.Track { return snapshot(h.items) }
func (h *History) Len() int             { return len(h.items) }
func (h *History) Clear()               { h.items = nil }

// Queue is an unbounded FIFO.
type Queue struct {
	items []catalog.Track
}

func (q *Queue) Enqueue(t catalog.Track) {
	q.items = append(q.items, t.Clone())
}

// Dequeue reports false on an empty queue; that is a normal state, not an error.
func (q *Queue) Dequeue() (catalog.Track, bool) {
	if len(q.items) == 0 {
		return catalog.Track{}, false
	}
	head := q.items[0]
	q.items[0] = catalog.Track{}
	q.items = q.items[1:]
	return head, true
}

func (q *Queue) Peek() (catalog.Track, bool) {
	if len(q.items) == 0 {
		return catalog.Track{}, false
	}
	return q.items[0].Clone(), true
}

// RemoveByID drops every entry with the given id and returns how many
// were removed.
func (q *Queue) RemoveByID(id int64) int {
	kept := make([]catalog.Track, 0, len(q.items))
	for _, t := range q.items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(q.items) - len(kept)
	q.items = kept
	return removed
}

func (q *Queue) All() []catalog.Track { return snapshot(q.items) }
func (q *Queue) Len() int             { return len(q.items) }
func (q *Queue) Clear()               { q.items = nil }

// Playlist is an ordered track list. Duplicates are allowed.
type Playlist struct {
	items []catalog.Track
}

func (p *Playlist) Add(t catalog.Track) {
	p.items = append(p.items, t.Clone())
}

// Remove deletes the first entry with the given id.
func (p *Playlist) Remove(id int64) bool {
	for i, t := range p.items {
		if t.ID == id {
			p.items = append(p.items[:i:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a snapshot; later mutations of the playlist are not visible
// through it.
func (p *Playlist) All() []catalog.Track { return snapshot(p.items) }
func (p *Playlist) Len() int             { return len(p.items) }
func (p *Playlist) Clear()               { p.items = nil }

func snapshot(items []catalog.Track) []catalog.Track {
	out := make([]catalog.Track, len(items))
	for i, t := range items {
		out[i] = t.Clone()
	}
	return out
}
