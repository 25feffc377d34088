package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"catalog-service/internal/auth"
	"catalog-service/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.Authenticate(body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.log.Info().Str("username", body.Username).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	redirect := "/user"
	if user.Role == auth.RoleAdmin {
		redirect = "/admin"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"role":     user.Role,
		"redirect": redirect,
		"token":    token,
	})
}

// GET|POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w)
}
