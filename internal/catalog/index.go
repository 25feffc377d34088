package catalog

import (
	"fmt"
	"strings"
)

// Index owns the canonical set of tracks. The flat list is authoritative
// (insertion order, used for listing and persistence); the title tree is a
// search structure derived from it.
//
// Index does no locking of its own; library.Service guards it.
type Index struct {
	tracks []*Track
	byID   map[int64]*Track
	tree   titleTree
}

func NewIndex() *Index {
	return &Index{byID: make(map[int64]*Track)}
}

func (ix *Index) Insert(t Track) error {
	if _, ok := ix.byID[t.ID]; ok {
		return fmt.Errorf("insert %d: %w", t.ID, ErrDuplicateID)
	}
	stored := t.Clone()
	ix.tracks = append(ix.tracks, &stored)
	ix.byID[stored.ID] = &stored
	ix.tree.insert(&stored)
	return nil
}

func (ix *Index) Lookup(id int64) (Track, error) {
	t, ok := ix.byID[id]
	if !ok {
		return Track{}, fmt.Errorf("lookup %d: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

func (ix *Index) Has(id int64) bool {
	_, ok := ix.byID[id]
	return ok
}

// Delete removes the track and rebuilds the search tree from the flat list
// so the deleted entry can never surface in a later search.
func (ix *Index) Delete(id int64) (Track, error) {
	t, ok := ix.byID[id]
	if !ok {
		return Track{}, fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	delete(ix.byID, id)
	for i, cur := range ix.tracks {
		if cur.ID == id {
			ix.tracks = append(ix.tracks[:i], ix.tracks[i+1:]...)
			break
		}
	}
	ix.rebuildTree()
	return t.Clone(), nil
}

// Update mutates the track in place. A title change does not re-position
// the tree node: ordering may go stale, search stays correct because it
// visits every node.
func (ix *Index) Update(id int64, p Patch) (Track, error) {
	t, ok := ix.byID[id]
	if !ok {
		return Track{}, fmt.Errorf("update %d: %w", id, ErrNotFound)
	}
	p.apply(t)
	return t.Clone(), nil
}

// Search returns every track whose title, artist or genre contains query
// (case-insensitive), in tree pre-order. It never returns nil.
func (ix *Index) Search(query string) []Track {
	out := []Track{}
	q := strings.ToLower(query)
	if q == "" {
		return out
	}
	ix.tree.match(q, func(t *Track) {
		out = append(out, t.Clone())
	})
	return out
}

// Sorted returns the tracks in case-insensitive title order.
func (ix *Index) Sorted() []Track {
	out := make([]Track, 0, len(ix.tracks))
	ix.tree.inOrder(func(t *Track) {
		out = append(out, t.Clone())
	})
	return out
}

// All returns copies of every track in insertion order.
func (ix *Index) All() []Track {
	out := make([]Track, 0, len(ix.tracks))
	for _, t := range ix.tracks {
		out = append(out, t.Clone())
	}
	return out
}

// Replace discards the current contents and loads tracks wholesale.
// On a duplicate id the index is left untouched.
func (ix *Index) Replace(tracks []Track) error {
	fresh := NewIndex()
	for _, t := range tracks {
		if err := fresh.Insert(t); err != nil {
			return err
		}
	}
	*ix = *fresh
	return nil
}

// MaxID is 0 for an empty catalog.
func (ix *Index) MaxID() int64 {
	var max int64
	for _, t := range ix.tracks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

func (ix *Index) Len() int {
	return len(ix.tracks)
}

func (ix *Index) rebuildTree() {
	ix.tree = titleTree{}
	for _, t := range ix.tracks {
		ix.tree.insert(t)
	}
}
