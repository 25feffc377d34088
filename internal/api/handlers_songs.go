package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"catalog-service/internal/auth"
	"catalog-service/internal/catalog"
	"catalog-service/internal/library"
	"catalog-service/internal/media"
	"catalog-service/internal/validation"
)

// Body limit for add/update: both files at their cap plus the text fields.
var maxSongForm = media.Audio.MaxBytes() + media.Cover.MaxBytes() + 1<<20

const formMemory = 32 << 20

// GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"songs": s.lib.ListTracks()})
}

// GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	t, err := s.lib.GetTrack(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GET /api/search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	// q is matched as given; a lone space matches every title containing one.
	writeJSON(w, http.StatusOK, map[string]any{"results": s.lib.SearchTracks(r.URL.Query().Get("q"))})
}

// GET /api/recommendations/{id}
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": s.lib.RecommendationsFor(id)})
}

// GET /api/play_next/{id}
func (s *Server) handlePlayNext(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	next, found := s.lib.PlayNext(auth.UserID(r), id)
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"song": nil, "message": "No recommendations found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": next})
}

type songForm struct {
	Title    string `validate:"max=200"`
	Artist   string `validate:"max=200"`
	Duration int    `validate:"gte=0"`
	Genre    string `validate:"max=100"`
}

// POST /api/songs (multipart: title, artist, duration, genre, audio_file, cover_file)
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	if !parseSongForm(w, r) {
		return
	}
	form := songForm{
		Title:  strings.TrimSpace(r.FormValue("title")),
		Artist: strings.TrimSpace(r.FormValue("artist")),
		Genre:  strings.TrimSpace(r.FormValue("genre")),
	}
	if v := strings.TrimSpace(r.FormValue("duration")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "duration must be a whole number of seconds")
			return
		}
		form.Duration = d
	}
	if err := validation.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, closeAll := formMedia(r)
	defer closeAll()

	t, err := s.lib.AddTrack(r.Context(), library.Meta{
		Title:    form.Title,
		Artist:   form.Artist,
		Duration: form.Duration,
		Genre:    form.Genre,
	}, m)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "song": t})
}

// PUT /api/songs/{id}; every field is optional.
func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if !parseSongForm(w, r) {
		return
	}

	var patch catalog.Patch
	form := songForm{}
	if v, ok := formField(r, "title"); ok {
		patch.Title, form.Title = &v, v
	}
	if v, ok := formField(r, "artist"); ok {
		patch.Artist, form.Artist = &v, v
	}
	if v, ok := formField(r, "genre"); ok {
		patch.Genre, form.Genre = &v, v
	}
	if v, ok := formField(r, "duration"); ok && v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "duration must be a whole number of seconds")
			return
		}
		patch.Duration, form.Duration = &d, d
	}
	if err := validation.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, closeAll := formMedia(r)
	defer closeAll()

	t, err := s.lib.UpdateTrack(r.Context(), id, patch, m)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "song": t})
}

// DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.DeleteTrack(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// parseSongForm accepts multipart or urlencoded bodies.
func parseSongForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxSongForm)
	err := r.ParseMultipartForm(formMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid form")
		return false
	}
	return true
}

func formField(r *http.Request, key string) (string, bool) {
	vs, ok := r.PostForm[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

// formMedia opens the audio_file and cover_file parts, if present. The
// returned func closes whatever was opened.
func formMedia(r *http.Request) (library.Media, func()) {
	var m library.Media
	var files []multipart.File
	open := func(field string) *library.Upload {
		f, hdr, err := r.FormFile(field)
		if err != nil {
			return nil
		}
		files = append(files, f)
		if hdr.Filename == "" {
			return nil
		}
		return &library.Upload{Filename: hdr.Filename, Body: f}
	}
	m.Audio = open("audio_file")
	m.Cover = open("cover_file")
	return m, func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
}
