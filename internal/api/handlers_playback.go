package api

import (
	"net/http"

	"catalog-service/internal/auth"
)

// GET /api/favorites
func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.lib.GetFavorites(auth.UserID(r))})
}

// POST /api/favorites/{id}
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.AddFavorite(auth.UserID(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DELETE /api/favorites/{id}
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	s.lib.RemoveFavorite(auth.UserID(r), id)
	writeSuccess(w)
}

// GET /api/queue
func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queue": s.lib.GetQueue(auth.UserID(r))})
}

// POST /api/queue/{id}
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.Enqueue(auth.UserID(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// POST /api/queue/next. An empty queue answers {"song": null}.
func (s *Server) handleDequeue(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lib.Dequeue(auth.UserID(r))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"song": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": t})
}

// DELETE /api/queue/{id}
func (s *Server) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	n := s.lib.RemoveFromQueue(auth.UserID(r), id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": n})
}

// POST /api/queue/clear
func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	s.lib.ClearQueue(auth.UserID(r))
	writeSuccess(w)
}

// GET /api/history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.lib.GetHistory(auth.UserID(r))})
}

// POST /api/history/{id}
func (s *Server) handlePushHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	if err := s.lib.PushHistory(auth.UserID(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}
