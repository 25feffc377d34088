package media

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the subset of embedded audio metadata used to fill track fields.
type Tags struct {
	Title  string
	Artist string
	Genre  string
}

// ReadTags reads ID3/MP4/FLAC/OGG metadata from r and rewinds it. When the
// file carries no title the base file name is used instead.
func ReadTags(r io.ReadSeeker, filename string) (Tags, error) {
	defer func() { _, _ = r.Seek(0, io.SeekStart) }()

	fallback := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	m, err := tag.ReadFrom(r)
	if err != nil {
		return Tags{Title: fallback}, err
	}

	t := Tags{Title: m.Title(), Artist: m.Artist(), Genre: m.Genre()}
	if t.Artist == "" {
		t.Artist = m.AlbumArtist()
	}
	if t.Title == "" {
		t.Title = fallback
	}
	return t, nil
}
