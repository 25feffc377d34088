package playback

import (
	"fmt"
	"testing"

	"catalog-service/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tr(id int64) catalog.Track {
	return catalog.Track{ID: id, Title: fmt.Sprintf("Track %d", id), Genre: "Pop"}
}

func ids(tracks []catalog.Track) []int64 {
	out := make([]int64, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func TestHistory_Bounded(t *testing.T) {
	var h History
	for i := int64(1); i <= 52; i++ {
		h.Push(tr(i))
	}

	all := h.All()
	require.Len(t, all, HistoryLimit)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, int64(52), all[len(all)-1].ID)

	top, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(52), top.ID)
	assert.Equal(t, HistoryLimit-1, h.Len())
}

func TestHistory_PeekPopEmpty(t *testing.T) {
	var h History
	_, ok := h.Pop()
	assert.False(t, ok)
	_, ok = h.Peek()
	assert.False(t, ok)

	h.Push(tr(1))
	h.Push(tr(2))
	top, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(2), top.ID)
	assert.Equal(t, 2, h.Len())

	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestQueue_FIFO(t *testing.T) {
	var q Queue
	for _, id := range []int64{3, 1, 2} {
		q.Enqueue(tr(id))
	}

	var got []int64
	for {
		next, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, next.ID)
	}
	assert.Equal(t, []int64{3, 1, 2}, got)

	_, ok := q.Dequeue()
	assert.False(t, ok, "empty queue reports absent")
}

func TestQueue_RemoveByID(t *testing.T) {
	var q Queue
	for _, id := range []int64{1, 2, 1, 3, 1} {
		q.Enqueue(tr(id))
	}

	assert.Equal(t, 3, q.RemoveByID(1))
	assert.Equal(t, []int64{2, 3}, ids(q.All()))

	assert.Equal(t, 0, q.RemoveByID(1))
	assert.Equal(t, []int64{2, 3}, ids(q.All()))

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(2), head.ID)
	assert.Equal(t, 2, q.Len())

	q.Clear()
	assert.Empty(t, q.All())
}

func TestPlaylist_DuplicatesAndRemoveFirst(t *testing.T) {
	var p Playlist
	p.Add(tr(1))
	p.Add(tr(2))
	p.Add(tr(1))

	assert.Equal(t, []int64{1, 2, 1}, ids(p.All()))
	assert.True(t, p.Remove(1))
	assert.Equal(t, []int64{2, 1}, ids(p.All()))
	assert.False(t, p.Remove(9))

	p.Clear()
	assert.Equal(t, 0, p.Len())
}

func TestPlaylist_Snapshot(t *testing.T) {
	var p Playlist
	p.Add(tr(1))
	p.Add(tr(2))

	snap := p.All()
	p.Remove(1)
	p.Add(tr(3))
	snap[1].Title = "mutated by caller"

	assert.Equal(t, []int64{1, 2}, ids(snap))
	assert.Equal(t, []int64{2, 3}, ids(p.All()))
	assert.Equal(t, "Track 2", p.All()[0].Title)
}
