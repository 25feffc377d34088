package catalog

import "errors"

var (
	ErrNotFound    = errors.New("track not found")
	ErrDuplicateID = errors.New("track id already exists")
)

// Track is one catalog entry. The JSON names are the persisted schema and
// must stay stable: external tooling reads songs_data.json directly.
type Track struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Duration  int     `json:"duration"`
	Genre     string  `json:"genre"`
	AudioPath *string `json:"audio_path"`
	CoverPath *string `json:"cover_path"`
}

// Patch carries the optional fields of an update. Nil means "keep".
type Patch struct {
	Title     *string
	Artist    *string
	Duration  *int
	Genre     *string
	AudioPath *string
	CoverPath *string
}

func (p Patch) apply(t *Track) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Genre != nil {
		t.Genre = *p.Genre
	}
	if p.AudioPath != nil {
		t.AudioPath = cloneRef(p.AudioPath)
	}
	if p.CoverPath != nil {
		t.CoverPath = cloneRef(p.CoverPath)
	}
}

// Clone returns a copy that shares no pointers with t.
func (t Track) Clone() Track {
	t.AudioPath = cloneRef(t.AudioPath)
	t.CoverPath = cloneRef(t.CoverPath)
	return t
}

func cloneRef(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ref is a small helper for building nullable media references.
func Ref(s string) *string {
	return &s
}
