// Package library is the catalog orchestrator. Service owns the catalog
// index, the recommendation graph and every user's playback state, and is
// the only entry point the HTTP layer talks to.
//
// Catalog reads share one RWMutex; catalog writes hold it exclusively.
// Playback state is locked per user, so listeners never contend on the
// catalog lock beyond the lookup of the track they act on.
//
// Persistence, media cleanup and event publishing run after the in-memory
// change and are best-effort: failures are logged and counted, never
// returned, and never undo the change.
package library

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"catalog-service/internal/catalog"
	"catalog-service/internal/events"
	"catalog-service/internal/logging"
	"catalog-service/internal/media"
	"catalog-service/internal/metrics"
	"catalog-service/internal/playback"
	"catalog-service/internal/recommend"
)

// ErrNoCatalog is returned by a Store that has never saved a catalog.
var ErrNoCatalog = errors.New("no stored catalog")

// Store persists the full catalog as an ordered list of tracks.
type Store interface {
	Save(ctx context.Context, tracks []catalog.Track) error
	Load(ctx context.Context) ([]catalog.Track, error)
}

// MediaStore keeps uploaded files and hands back opaque references.
type MediaStore interface {
	Save(ctx context.Context, kind media.Kind, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Deps are the collaborators of a Service. Any of them may be nil.
type Deps struct {
	Store     Store
	Media     MediaStore
	Publisher Publisher
	// StoreName labels persistence failure metrics.
	StoreName string
	// SeedSamples loads SampleTracks when the store holds no catalog.
	SeedSamples bool
}

type Service struct {
	mu    sync.RWMutex
	index *catalog.Index
	graph *recommend.Graph
	// version counts catalog mutations; snapshots carry it so a slow save
	// can never overwrite a newer one.
	version uint64

	users *playback.Registry

	saveMu       sync.Mutex
	savedVersion uint64

	deps Deps
	log  zerolog.Logger
}

func New(deps Deps) *Service {
	if deps.StoreName == "" {
		deps.StoreName = "none"
	}
	return &Service{
		index: catalog.NewIndex(),
		graph: recommend.NewGraph(),
		users: playback.NewRegistry(),
		deps:  deps,
		log:   logging.Component("library"),
	}
}

// SampleTracks is the catalog a fresh installation starts with.
func SampleTracks() []catalog.Track {
	return []catalog.Track{
		{ID: 1, Title: "Sample Song 1", Artist: "Sample Artist", Duration: 180, Genre: "Pop"},
		{ID: 2, Title: "Sample Song 2", Artist: "Sample Artist", Duration: 200, Genre: "Rock"},
	}
}

// Load replaces the catalog with the stored one and rebuilds the
// recommendation graph. With no stored catalog the service starts empty,
// or with SampleTracks when seeding is enabled.
//
// A store that cannot be read, or that holds duplicate ids, is logged and
// counted; the service then starts as if nothing was stored, but does not
// save, so the store is only overwritten by the next mutation.
func (s *Service) Load(ctx context.Context) {
	var tracks []catalog.Track
	var err error
	if s.deps.Store != nil {
		tracks, err = s.deps.Store.Load(ctx)
	} else {
		err = ErrNoCatalog
	}

	seeded, save := false, false
	switch {
	case errors.Is(err, ErrNoCatalog):
		save = true
	case err != nil:
		s.loadFailed(err)
	}
	if err != nil {
		tracks = nil
		if s.deps.SeedSamples {
			tracks, seeded = SampleTracks(), true
		}
	}

	s.mu.Lock()
	if err := s.index.Replace(tracks); err != nil {
		s.loadFailed(err)
		tracks, seeded, save = nil, false, false
		if s.deps.SeedSamples {
			tracks, seeded = SampleTracks(), true
		}
		_ = s.index.Replace(tracks)
	}
	s.graph.Rebuild(s.index.All())
	version, snapshot := s.bump()
	s.mu.Unlock()

	metrics.CatalogTracks.Set(float64(len(snapshot)))
	metrics.CatalogMutations.WithLabelValues("load").Inc()
	s.log.Info().Int("tracks", len(snapshot)).Bool("seeded", seeded).Msg("catalog loaded")

	if seeded && save {
		s.persist(ctx, version, snapshot)
	}
	s.publish(ctx, events.CatalogLoaded, map[string]any{"count": len(snapshot)})
}

func (s *Service) loadFailed(err error) {
	metrics.PersistFailures.WithLabelValues(s.deps.StoreName).Inc()
	s.log.Error().Err(err).Str("store", s.deps.StoreName).Msg("load catalog; starting without stored tracks")
}

// bump must be called with mu held for writing.
func (s *Service) bump() (uint64, []catalog.Track) {
	s.version++
	return s.version, s.index.All()
}

func (s *Service) ListTracks() []catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.All()
}

func (s *Service) GetTrack(id int64) (catalog.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Lookup(id)
}

func (s *Service) SearchTracks(query string) []catalog.Track {
	metrics.SearchQueries.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(query)
}

// RecommendationsFor returns the tracks sharing id's genre, in catalog
// order. An unknown id has no recommendations.
func (s *Service) RecommendationsFor(id int64) []catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	related := make(map[int64]bool)
	for _, n := range s.graph.Recommend(id) {
		related[n] = true
	}
	out := []catalog.Track{}
	for _, t := range s.index.All() {
		if related[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// PlayNext picks the first neighbor of currentID. When user is non-empty
// the pick is pushed onto that user's history. ok is false when there is
// nothing to recommend.
func (s *Service) PlayNext(user string, currentID int64) (catalog.Track, bool) {
	s.mu.RLock()
	var next catalog.Track
	found := false
	if ids := s.graph.Recommend(currentID); len(ids) > 0 {
		t, err := s.index.Lookup(ids[0])
		next, found = t, err == nil
	}
	s.mu.RUnlock()

	if !found {
		return catalog.Track{}, false
	}
	if user != "" {
		s.users.Get(user).PushHistory(next)
	}
	metrics.PlaybackOps.WithLabelValues("play_next").Inc()
	return next, true
}

// Stats are catalog-wide totals.
type Stats struct {
	Tracks    int
	Listeners int
	Playlists int
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	tracks := s.index.Len()
	s.mu.RUnlock()
	return Stats{
		Tracks:    tracks,
		Listeners: s.users.Len(),
		Playlists: s.users.PlaylistCount(),
	}
}

func (s *Service) persist(ctx context.Context, version uint64, snapshot []catalog.Track) {
	if s.deps.Store == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		return
	}
	s.savedVersion = version
	if err := s.deps.Store.Save(ctx, snapshot); err != nil {
		metrics.PersistFailures.WithLabelValues(s.deps.StoreName).Inc()
		s.log.Error().Err(err).Str("store", s.deps.StoreName).Uint64("version", version).Msg("persist catalog")
	}
}

func (s *Service) publish(ctx context.Context, kind string, payload any) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, events.Event{Type: kind, Payload: payload}); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warn().Err(err).Str("event", kind).Msg("publish event")
	}
}

func (s *Service) releaseMedia(ctx context.Context, refs ...*string) {
	if s.deps.Media == nil {
		return
	}
	for _, ref := range refs {
		if ref == nil || *ref == "" {
			continue
		}
		if err := s.deps.Media.Delete(ctx, *ref); err != nil {
			metrics.MediaCleanupFailures.Inc()
			s.log.Warn().Err(err).Str("ref", *ref).Msg("release media")
		}
	}
}
