package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"catalog-service/internal/auth"
	"catalog-service/internal/validation"
)

type createPlaylistRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// GET /api/playlists
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"playlists": s.lib.ListPlaylists(auth.UserID(r))})
}

// POST /api/playlists
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body createPlaylistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "playlist name required")
		return
	}
	if err := s.lib.CreatePlaylist(auth.UserID(r), body.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Playlist created"})
}

// DELETE /api/playlists/{name}
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeletePlaylist(auth.UserID(r), chi.URLParam(r, "name")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// POST /api/playlists/{name}/songs/{id}
func (s *Server) handleAddToPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.AddToPlaylist(auth.UserID(r), chi.URLParam(r, "name"), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DELETE /api/playlists/{name}/songs/{id}
func (s *Server) handleRemoveFromPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.RemoveFromPlaylist(auth.UserID(r), chi.URLParam(r, "name"), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}
