package user

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Repository, *fakeImages) {
	t.Helper()
	svc, repo, images := newTestService(t)
	h := NewHandler(svc, 1<<20)

	r := chi.NewRouter()
	r.Get("/users/current", h.Current)
	r.Patch("/users/account", h.UpdateAccount)
	r.Patch("/users/avatar", h.UpdateAvatar)
	r.Put("/users/profile/visibility", h.SetVisibility)
	r.Get("/users/profile/{userID}", h.GetProfile)
	r.Get("/users/profiles", h.ListProfiles)
	return r, repo, images
}

func as(req *http.Request, u *User) *http.Request {
	return req.WithContext(NewContext(req.Context(), u))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Current(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	u := createUser(t, repo, "a@x.com", true)

	rec := serve(router, as(httptest.NewRequest(http.MethodGet, "/users/current", nil), u))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@x.com"`)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/users/current", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateAccount(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	u := createUser(t, repo, "a@x.com", true)

	body := `{"name":"Grace","bio":"Admiral","phone":"777"}`
	rec := serve(router, as(httptest.NewRequest(http.MethodPatch, "/users/account", strings.NewReader(body)), u))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Grace"`)

	rec = serve(router, as(httptest.NewRequest(http.MethodPatch, "/users/account", strings.NewReader(`{"name":"x"}`)), u))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"bio is required", "phone is required"}, resp.Errors)
}

func TestHandler_UpdateAvatar(t *testing.T) {
	router, repo, images := newTestRouter(t)
	u := createUser(t, repo, "a@x.com", true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "face.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, as(req, u))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"http://cdn/avatars/face.jpg"}, images.uploaded)

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPatch, "/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = serve(router, as(req, u))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrAvatarRequired.Message)
}

func TestHandler_VisibilityAndProfile(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	owner := createUser(t, repo, "owner@x.com", true)
	other := createUser(t, repo, "other@x.com", true)

	rec := serve(router, as(httptest.NewRequest(http.MethodPut, "/users/profile/visibility", strings.NewReader(`{}`)), owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, as(httptest.NewRequest(http.MethodPut, "/users/profile/visibility", strings.NewReader(`{"is_public":false}`)), owner))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, as(httptest.NewRequest(http.MethodGet, "/users/profile/"+owner.ID.String(), nil), other))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(router, as(httptest.NewRequest(http.MethodGet, "/users/profile/"+owner.ID.String(), nil), owner))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, as(httptest.NewRequest(http.MethodGet, "/users/profile/nope", nil), owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, as(httptest.NewRequest(http.MethodGet, "/users/profiles", nil), owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "other@x.com")
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(NewContext(context.Background(), nil))
	assert.False(t, ok)

	u := &User{Email: "a@x.com"}
	got, ok := FromContext(NewContext(context.Background(), u))
	require.True(t, ok)
	assert.Same(t, u, got)
}
