package library

import (
	"context"
	"io"

	"catalog-service/internal/catalog"
	"catalog-service/internal/events"
	"catalog-service/internal/media"
	"catalog-service/internal/metrics"
)

// Meta is the descriptive part of a new track.
type Meta struct {
	Title    string
	Artist   string
	Duration int
	Genre    string
}

// Upload is one file sent along with a track. When Body is also an
// io.Seeker, audio tags can fill empty metadata fields.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Media holds the optional files of an add or update.
type Media struct {
	Audio *Upload
	Cover *Upload
}

// AddTrack stores the uploads, assigns the next id (max existing id + 1,
// so ids freed by deleting the newest track are handed out again) and links
// the track to every other track of the same genre.
//
// Uploads the media store refuses are skipped; the track is still created.
func (s *Service) AddTrack(ctx context.Context, meta Meta, m Media) (catalog.Track, error) {
	meta = s.fillFromTags(meta, m.Audio)
	audioRef, coverRef := s.saveUploads(ctx, m)

	s.mu.Lock()
	t := catalog.Track{
		ID:        s.index.MaxID() + 1,
		Title:     meta.Title,
		Artist:    meta.Artist,
		Duration:  meta.Duration,
		Genre:     meta.Genre,
		AudioPath: audioRef,
		CoverPath: coverRef,
	}
	if err := s.index.Insert(t); err != nil {
		s.mu.Unlock()
		s.releaseMedia(ctx, audioRef, coverRef)
		return catalog.Track{}, err
	}
	s.graph.Link(t.ID, t.Genre, s.index.All())
	version, snapshot := s.bump()
	s.mu.Unlock()

	metrics.CatalogTracks.Set(float64(len(snapshot)))
	metrics.CatalogMutations.WithLabelValues("add").Inc()
	s.log.Info().Int64("track_id", t.ID).Str("genre", t.Genre).Msg("track added")

	s.persist(ctx, version, snapshot)
	s.publish(ctx, events.TrackAdded, t)
	return t, nil
}

// UpdateTrack patches the track in place. New uploads replace the old
// media, which is then released. A genre change moves the track to its new
// genre's neighbors.
func (s *Service) UpdateTrack(ctx context.Context, id int64, patch catalog.Patch, m Media) (catalog.Track, error) {
	s.mu.RLock()
	_, err := s.index.Lookup(id)
	s.mu.RUnlock()
	if err != nil {
		return catalog.Track{}, err
	}

	audioRef, coverRef := s.saveUploads(ctx, m)
	if audioRef != nil {
		patch.AudioPath = audioRef
	}
	if coverRef != nil {
		patch.CoverPath = coverRef
	}

	s.mu.Lock()
	old, err := s.index.Lookup(id)
	if err != nil {
		// deleted while the uploads were being written
		s.mu.Unlock()
		s.releaseMedia(ctx, audioRef, coverRef)
		return catalog.Track{}, err
	}
	updated, err := s.index.Update(id, patch)
	if err != nil {
		s.mu.Unlock()
		s.releaseMedia(ctx, audioRef, coverRef)
		return catalog.Track{}, err
	}
	if updated.Genre != old.Genre {
		s.graph.RemoveNode(id)
		s.graph.Link(id, updated.Genre, s.index.All())
	}
	version, snapshot := s.bump()
	s.mu.Unlock()

	metrics.CatalogMutations.WithLabelValues("update").Inc()
	s.log.Info().Int64("track_id", id).Msg("track updated")

	s.releaseMedia(ctx, replaced(old.AudioPath, updated.AudioPath), replaced(old.CoverPath, updated.CoverPath))
	s.persist(ctx, version, snapshot)
	s.publish(ctx, events.TrackUpdated, updated)
	return updated, nil
}

// DeleteTrack removes the track from the catalog and the graph and releases
// its media. Playback state that already holds a copy of the track keeps it.
func (s *Service) DeleteTrack(ctx context.Context, id int64) error {
	s.mu.Lock()
	t, err := s.index.Delete(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.graph.RemoveNode(id)
	version, snapshot := s.bump()
	s.mu.Unlock()

	metrics.CatalogTracks.Set(float64(len(snapshot)))
	metrics.CatalogMutations.WithLabelValues("delete").Inc()
	s.log.Info().Int64("track_id", id).Msg("track deleted")

	s.releaseMedia(ctx, t.AudioPath, t.CoverPath)
	s.persist(ctx, version, snapshot)
	s.publish(ctx, events.TrackDeleted, map[string]any{"id": id})
	return nil
}

// replaced returns the old reference when it was swapped for a different one.
func replaced(old, cur *string) *string {
	if old == nil || cur == nil || *old == *cur {
		return nil
	}
	return old
}

func (s *Service) saveUploads(ctx context.Context, m Media) (audio, cover *string) {
	return s.saveUpload(ctx, media.Audio, m.Audio), s.saveUpload(ctx, media.Cover, m.Cover)
}

func (s *Service) saveUpload(ctx context.Context, kind media.Kind, up *Upload) *string {
	if up == nil || up.Body == nil || up.Filename == "" || s.deps.Media == nil {
		return nil
	}
	ref, err := s.deps.Media.Save(ctx, kind, up.Filename, up.Body)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Str("file", up.Filename).Msg("upload skipped")
		return nil
	}
	return catalog.Ref(ref)
}

// fillFromTags completes empty title, artist and genre from the audio
// file's embedded tags.
func (s *Service) fillFromTags(meta Meta, audio *Upload) Meta {
	if audio == nil || (meta.Title != "" && meta.Artist != "" && meta.Genre != "") {
		return meta
	}
	rs, ok := audio.Body.(io.ReadSeeker)
	if !ok || !media.Audio.Allowed(audio.Filename) {
		return meta
	}
	tags, err := media.ReadTags(rs, audio.Filename)
	if err != nil {
		s.log.Debug().Err(err).Str("file", audio.Filename).Msg("no audio tags")
	}
	if meta.Title == "" {
		meta.Title = tags.Title
	}
	if meta.Artist == "" {
		meta.Artist = tags.Artist
	}
	if meta.Genre == "" {
		meta.Genre = tags.Genre
	}
	return meta
}
