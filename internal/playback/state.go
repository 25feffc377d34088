package playback

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"catalog-service/internal/catalog"
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrPlaylistExists   = errors.New("playlist already exists")
	ErrPlaylistName     = errors.New("playlist name required")
)

// PlaylistSummary is a named playlist as returned to callers.
type PlaylistSummary struct {
	Name   string          `json:"name"`
	Tracks []catalog.Track `json:"songs"`
	Count  int             `json:"count"`
}

// State is one user's playback state. Every method locks the user's mutex.
type State struct {
	mu        sync.Mutex
	favorites Playlist
	queue     Queue
	history   History
	playlists map[string]*Playlist
	order     []string
}

func newState() *State {
	return &State{playlists: make(map[string]*Playlist)}
}

func (s *State) Favorites() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites.All()
}

func (s *State) AddFavorite(t catalog.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites.Add(t)
}

func (s *State) RemoveFavorite(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites.Remove(id)
}

func (s *State) Queue() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.All()
}

func (s *State) Enqueue(t catalog.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Enqueue(t)
}

func (s *State) Dequeue() (catalog.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Dequeue()
}

func (s *State) RemoveFromQueue(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RemoveByID(id)
}

func (s *State) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Clear()
}

func (s *State) History() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.All()
}

func (s *State) PushHistory(t catalog.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Push(t)
}

// Playlists lists named playlists in creation order.
func (s *State) Playlists() []PlaylistSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlaylistSummary, 0, len(s.order))
	for _, name := range s.order {
		p := s.playlists[name]
		out = append(out, PlaylistSummary{Name: name, Tracks: p.All(), Count: p.Len()})
	}
	return out
}

func (s *State) PlaylistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *State) CreatePlaylist(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrPlaylistName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[name]; ok {
		return fmt.Errorf("create %q: %w", name, ErrPlaylistExists)
	}
	s.playlists[name] = &Playlist{}
	s.order = append(s.order, name)
	return nil
}

func (s *State) DeletePlaylist(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, ErrPlaylistNotFound)
	}
	delete(s.playlists, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *State) AddToPlaylist(name string, t catalog.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[name]
	if !ok {
		return fmt.Errorf("add to %q: %w", name, ErrPlaylistNotFound)
	}
	p.Add(t)
	return nil
}

// RemoveFromPlaylist reports whether a matching entry was removed; a
// missing playlist is an error, a missing track is not.
func (s *State) RemoveFromPlaylist(name string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[name]
	if !ok {
		return false, fmt.Errorf("remove from %q: %w", name, ErrPlaylistNotFound)
	}
	return p.Remove(id), nil
}

const shardCount = 16

type shard struct {
	mu    sync.Mutex
	users map[string]*State
}

// Registry maps user identity to State, creating it on first access.
type Registry struct {
	shards [shardCount]shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].users = make(map[string]*State)
	}
	return r
}

// Get returns the user's state, creating it if needed.
func (r *Registry) Get(user string) *State {
	sh := r.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.users[user]
	if !ok {
		st = newState()
		sh.users[user] = st
	}
	return st
}

// Lookup returns the user's state without creating it.
func (r *Registry) Lookup(user string) (*State, bool) {
	sh := r.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.users[user]
	return st, ok
}

// Len is the number of users that have touched their state.
func (r *Registry) Len() int {
	n := 0
	r.each(func(*State) { n++ })
	return n
}

// PlaylistCount sums named playlists over all users.
func (r *Registry) PlaylistCount() int {
	n := 0
	r.each(func(st *State) { n += st.PlaylistCount() })
	return n
}

func (r *Registry) each(fn func(*State)) {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		states := make([]*State, 0, len(sh.users))
		for _, st := range sh.users {
			states = append(states, st)
		}
		sh.mu.Unlock()
		for _, st := range states {
			fn(st)
		}
	}
}

func (r *Registry) shardFor(user string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return &r.shards[h.Sum32()%shardCount]
}
