package library

import (
	"catalog-service/internal/catalog"
	"catalog-service/internal/metrics"
	"catalog-service/internal/playback"
)

// Per-user operations. Reads for a user who never touched their state
// return empty lists without creating it; writes go through the registry's
// get-or-create accessor.

func (s *Service) GetFavorites(user string) []catalog.Track {
	if st, ok := s.users.Lookup(user); ok {
		return st.Favorites()
	}
	return []catalog.Track{}
}

func (s *Service) AddFavorite(user string, id int64) error {
	t, err := s.GetTrack(id)
	if err != nil {
		return err
	}
	s.users.Get(user).AddFavorite(t)
	metrics.PlaybackOps.WithLabelValues("add_favorite").Inc()
	return nil
}

// RemoveFavorite drops the first favorite with the given id, if any.
func (s *Service) RemoveFavorite(user string, id int64) {
	if st, ok := s.users.Lookup(user); ok {
		st.RemoveFavorite(id)
	}
}

func (s *Service) GetQueue(user string) []catalog.Track {
	if st, ok := s.users.Lookup(user); ok {
		return st.Queue()
	}
	return []catalog.Track{}
}

func (s *Service) Enqueue(user string, id int64) error {
	t, err := s.GetTrack(id)
	if err != nil {
		return err
	}
	s.users.Get(user).Enqueue(t)
	metrics.PlaybackOps.WithLabelValues("enqueue").Inc()
	return nil
}

// Dequeue pops the head of the user's queue; ok is false when it is empty.
func (s *Service) Dequeue(user string) (catalog.Track, bool) {
	t, ok := s.users.Get(user).Dequeue()
	if ok {
		metrics.PlaybackOps.WithLabelValues("dequeue").Inc()
	}
	return t, ok
}

// RemoveFromQueue drops every queued entry with the given id and reports
// how many there were.
func (s *Service) RemoveFromQueue(user string, id int64) int {
	if st, ok := s.users.Lookup(user); ok {
		return st.RemoveFromQueue(id)
	}
	return 0
}

func (s *Service) ClearQueue(user string) {
	if st, ok := s.users.Lookup(user); ok {
		st.ClearQueue()
	}
}

func (s *Service) GetHistory(user string) []catalog.Track {
	if st, ok := s.users.Lookup(user); ok {
		return st.History()
	}
	return []catalog.Track{}
}

func (s *Service) PushHistory(user string, id int64) error {
	t, err := s.GetTrack(id)
	if err != nil {
		return err
	}
	s.users.Get(user).PushHistory(t)
	metrics.PlaybackOps.WithLabelValues("push_history").Inc()
	return nil
}

func (s *Service) ListPlaylists(user string) []playback.PlaylistSummary {
	if st, ok := s.users.Lookup(user); ok {
		return st.Playlists()
	}
	return []playback.PlaylistSummary{}
}

func (s *Service) CreatePlaylist(user, name string) error {
	return s.users.Get(user).CreatePlaylist(name)
}

func (s *Service) DeletePlaylist(user, name string) error {
	st, ok := s.users.Lookup(user)
	if !ok {
		return playback.ErrPlaylistNotFound
	}
	return st.DeletePlaylist(name)
}

// AddToPlaylist checks the track first, so an unknown track is reported
// before an unknown playlist.
func (s *Service) AddToPlaylist(user, name string, id int64) error {
	t, err := s.GetTrack(id)
	if err != nil {
		return err
	}
	st, ok := s.users.Lookup(user)
	if !ok {
		return playback.ErrPlaylistNotFound
	}
	return st.AddToPlaylist(name, t)
}

func (s *Service) RemoveFromPlaylist(user, name string, id int64) error {
	st, ok := s.users.Lookup(user)
	if !ok {
		return playback.ErrPlaylistNotFound
	}
	_, err := st.RemoveFromPlaylist(name, id)
	return err
}
