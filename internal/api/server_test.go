package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"catalog-service/internal/auth"
	"catalog-service/internal/catalog"
	"catalog-service/internal/library"
	"catalog-service/internal/media"
)

type testEnv struct {
	lib     *library.Service
	tokens  *auth.Issuer
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)
	lib := library.New(library.Deps{Media: store, SeedSamples: true})
	lib.Load(context.Background())

	users, err := auth.NewDirectory(auth.DemoCredentials(), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewIssuer([]byte("test-secret-0123456789"), time.Hour)

	srv := NewServer(lib, users, tokens, store, nil, Options{})
	return &testEnv{lib: lib, tokens: tokens, handler: srv.Router()}
}

func (e *testEnv) token(t *testing.T, username, role string) string {
	t.Helper()
	tok, err := e.tokens.Issue(auth.User{Username: username, Role: role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSongs_ListAndGet(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/api/songs", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Songs []catalog.Track `json:"songs"`
	}
	decode(t, w, &list)
	require.Len(t, list.Songs, 2)
	assert.Equal(t, "Sample Song 1", list.Songs[0].Title)

	w = e.do(t, "GET", "/api/songs/2", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got catalog.Track
	decode(t, w, &got)
	assert.Equal(t, "Rock", got.Genre)
	assert.Nil(t, got.AudioPath)

	w = e.do(t, "GET", "/api/songs/99", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "song not found")

	w = e.do(t, "GET", "/api/songs/abc", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "GET", "/api/search?q=rock", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Results []catalog.Track `json:"results"`
	}
	decode(t, w, &res)
	require.Len(t, res.Results, 1)
	assert.Equal(t, int64(2), res.Results[0].ID)

	w = e.do(t, "GET", "/api/search?q=%20", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	res.Results = nil
	decode(t, w, &res)
	assert.Len(t, res.Results, 2, "the query is not trimmed")

	w = e.do(t, "GET", "/api/search?q=", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "POST", "/login", "", strings.NewReader(`{"username":"admin","password":"admin123"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success  bool   `json:"success"`
		Role     string `json:"role"`
		Redirect string `json:"redirect"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, auth.RoleAdmin, resp.Role)
	assert.Equal(t, "/admin", resp.Redirect)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie alone authenticates.
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]int
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats["total_songs"])
	assert.Equal(t, 1, stats["total_users"])
	assert.Equal(t, 0, stats["total_playlists"])

	w = e.do(t, "POST", "/login", "", strings.NewReader(`{"username":"admin","password":"nope"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, "POST", "/login", "", strings.NewReader(`{"username":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, "POST", "/login", "", strings.NewReader(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, "GET", "/logout", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAdminRoutes_Guarded(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "DELETE", "/api/songs/1", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, "DELETE", "/api/songs/1", e.token(t, "user", auth.RoleUser), nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, "GET", "/api/stats", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := e.lib.GetTrack(1)
	assert.NoError(t, err)
}

func TestAddSong_Multipart(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, "admin", auth.RoleAdmin)

	body, ct := multipartBody(t,
		map[string]string{"title": "Night Drive", "artist": "Neon", "duration": "215", "genre": "Pop"},
		map[string][2]string{"cover_file": {"cover.png", "png-bytes"}},
	)
	w := e.do(t, "POST", "/api/songs", admin, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool          `json:"success"`
		Song    catalog.Track `json:"song"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), resp.Song.ID)
	assert.Equal(t, 215, resp.Song.Duration)
	assert.Nil(t, resp.Song.AudioPath)
	require.NotNil(t, resp.Song.CoverPath)
	assert.True(t, strings.HasPrefix(*resp.Song.CoverPath, "/uploads/covers/"))

	w = e.do(t, "GET", *resp.Song.CoverPath, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())

	w = e.do(t, "GET", "/api/recommendations/1", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs struct {
		Recommendations []catalog.Track `json:"recommendations"`
	}
	decode(t, w, &recs)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, int64(3), recs.Recommendations[0].ID)
}

func TestAddSong_Rejected(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, "admin", auth.RoleAdmin)

	body, ct := multipartBody(t, map[string]string{"title": "x", "duration": "three"}, nil)
	w := e.do(t, "POST", "/api/songs", admin, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"title": "x", "duration": "-5"}, nil)
	w = e.do(t, "POST", "/api/songs", admin, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, e.lib.ListTracks(), 2)
}

func TestUpdateSong(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, "admin", auth.RoleAdmin)

	form := url.Values{"genre": {"Rock"}, "duration": {"190"}}
	w := e.do(t, "PUT", "/api/songs/1", admin, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := e.lib.GetTrack(1)
	require.NoError(t, err)
	assert.Equal(t, "Rock", got.Genre)
	assert.Equal(t, 190, got.Duration)
	assert.Equal(t, "Sample Song 1", got.Title, "absent fields are kept")

	recs := e.lib.RecommendationsFor(2)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].ID)

	w = e.do(t, "PUT", "/api/songs/42", admin, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSong(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, "admin", auth.RoleAdmin)

	w := e.do(t, "DELETE", "/api/songs/1", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	w = e.do(t, "GET", "/api/songs/1", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, "DELETE", "/api/songs/1", admin, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueue(t *testing.T) {
	e := newTestEnv(t)
	user := e.token(t, "user", auth.RoleUser)

	w := e.do(t, "GET", "/api/queue", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue":[]`)

	w = e.do(t, "POST", "/api/queue/1", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, path := range []string{"/api/queue/1", "/api/queue/2", "/api/queue/2"} {
		w = e.do(t, "POST", path, user, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = e.do(t, "POST", "/api/queue/99", user, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, "DELETE", "/api/queue/2", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":2`)

	var next struct {
		Song *catalog.Track `json:"song"`
	}
	w = e.do(t, "POST", "/api/queue/next", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &next)
	require.NotNil(t, next.Song)
	assert.Equal(t, int64(1), next.Song.ID)

	w = e.do(t, "POST", "/api/queue/next", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"song":null`)

	e.do(t, "POST", "/api/queue/1", user, nil, "")
	w = e.do(t, "POST", "/api/queue/clear", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.lib.GetQueue("user"))
}

func TestPlayNext_PushesHistory(t *testing.T) {
	e := newTestEnv(t)
	user := e.token(t, "user", auth.RoleUser)
	_, err := e.lib.AddTrack(context.Background(), library.Meta{Title: "Third", Genre: "Pop"}, library.Media{})
	require.NoError(t, err)

	w := e.do(t, "GET", "/api/play_next/1", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Song *catalog.Track `json:"song"`
	}
	decode(t, w, &resp)
	require.NotNil(t, resp.Song)
	assert.Equal(t, int64(3), resp.Song.ID)

	w = e.do(t, "GET", "/api/play_next/2", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"song":null`)

	w = e.do(t, "GET", "/api/history", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		History []catalog.Track `json:"history"`
	}
	decode(t, w, &hist)
	require.Len(t, hist.History, 1)
	assert.Equal(t, int64(3), hist.History[0].ID)

	w = e.do(t, "POST", "/api/history/2", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, e.lib.GetHistory("user"), 2)
}

func TestFavorites(t *testing.T) {
	e := newTestEnv(t)
	user := e.token(t, "user", auth.RoleUser)

	require.Equal(t, http.StatusOK, e.do(t, "POST", "/api/favorites/2", user, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "POST", "/api/favorites/77", user, nil, "").Code)

	w := e.do(t, "GET", "/api/favorites", user, nil, "")
	var favs struct {
		Favorites []catalog.Track `json:"favorites"`
	}
	decode(t, w, &favs)
	require.Len(t, favs.Favorites, 1)
	assert.Equal(t, int64(2), favs.Favorites[0].ID)

	// Another listener sees nothing.
	w = e.do(t, "GET", "/api/favorites", e.token(t, "other", auth.RoleUser), nil, "")
	assert.Contains(t, w.Body.String(), `"favorites":[]`)

	require.Equal(t, http.StatusOK, e.do(t, "DELETE", "/api/favorites/2", user, nil, "").Code)
	assert.Empty(t, e.lib.GetFavorites("user"))
}

func TestPlaylists(t *testing.T) {
	e := newTestEnv(t)
	user := e.token(t, "user", auth.RoleUser)
	jsonCT := "application/json"

	w := e.do(t, "POST", "/api/playlists", user, strings.NewReader(`{"name":"road trip"}`), jsonCT)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, "POST", "/api/playlists", user, strings.NewReader(`{"name":"road trip"}`), jsonCT)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "playlist already exists")
	w = e.do(t, "POST", "/api/playlists", user, strings.NewReader(`{"name":""}`), jsonCT)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, "POST", "/api/playlists", user, strings.NewReader(`{"name":"   "}`), jsonCT)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, e.do(t, "POST", "/api/playlists/road%20trip/songs/1", user, nil, "").Code)
	assert.Equal(t, http.StatusOK, e.do(t, "POST", "/api/playlists/road%20trip/songs/1", user, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "POST", "/api/playlists/road%20trip/songs/99", user, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "POST", "/api/playlists/missing/songs/1", user, nil, "").Code)

	w = e.do(t, "GET", "/api/playlists", user, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Playlists []struct {
			Name  string          `json:"name"`
			Songs []catalog.Track `json:"songs"`
			Count int             `json:"count"`
		} `json:"playlists"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Playlists, 1)
	assert.Equal(t, "road trip", resp.Playlists[0].Name)
	assert.Equal(t, 2, resp.Playlists[0].Count)
	assert.Len(t, resp.Playlists[0].Songs, 2)

	assert.Equal(t, http.StatusOK, e.do(t, "DELETE", "/api/playlists/road%20trip/songs/1", user, nil, "").Code)
	assert.Equal(t, http.StatusOK, e.do(t, "DELETE", "/api/playlists/road%20trip", user, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "DELETE", "/api/playlists/road%20trip", user, nil, "").Code)
}

func TestMedia_UnknownRef(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/uploads/secrets/passwd", "", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, "GET", "/uploads/audio/missing.mp3", "", nil, "").Code)
}

func TestRateLimit(t *testing.T) {
	lib := library.New(library.Deps{})
	lib.Load(context.Background())
	users, err := auth.NewDirectory(nil, bcrypt.MinCost)
	require.NoError(t, err)
	srv := NewServer(lib, users, auth.NewIssuer([]byte("test-secret-0123456789"), time.Hour), nil, nil, Options{RateLimitRPS: 2})
	h := srv.Router()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/songs", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
