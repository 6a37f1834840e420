package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/studyplan-api/models"
)

func sessionCookie(t *testing.T, s *testServer, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == s.env.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", s.env.CookieName)
	return nil
}

func TestRegisterLoginSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("POST", "/api/auth/register", map[string]string{
		"email": " Ada@Example.com ", "password": "analytical", "name": "Ada",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "analytical")
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	var created struct {
		User models.User `json:"user"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "ada@example.com", created.User.Email)
	cookie := sessionCookie(t, s, rec.Result().Cookies())
	assert.True(t, cookie.HttpOnly)

	req := newRequest("GET", "/api/auth/session")
	req.AddCookie(cookie)
	rec = s.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session struct {
		User models.User `json:"user"`
	}
	decode(t, rec, &session)
	assert.Equal(t, created.User.ID, session.User.ID)

	rec = s.do("POST", "/api/auth/login", map[string]string{"email": "ADA@example.com", "password": "analytical"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sessionCookie(t, s, rec.Result().Cookies())
}

func TestRegisterRejectsDuplicateAndInvalid(t *testing.T) {
	s := newTestServer(t)

	body := map[string]string{"email": "ada@example.com", "password": "analytical"}
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/auth/register", body, nil).Code)

	rec := s.do("POST", "/api/auth/register", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do("POST", "/api/auth/register", map[string]string{"email": "not-an-email", "password": "short"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := errorBody(t, rec)["fields"].(map[string]interface{})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	rec = s.do("POST", "/api/auth/register", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rec)["error"])
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t)

	// 40 characters, 80 bytes
	rec := s.do("POST", "/api/auth/register", map[string]string{
		"email": "ada@example.com", "password": strings.Repeat("é", 40),
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	fields := errorBody(t, rec)["fields"].(map[string]interface{})
	assert.Equal(t, "must be at most 72 bytes long", fields["password"])

	rec = s.do("POST", "/api/auth/register", map[string]string{
		"email": "ada@example.com", "password": strings.Repeat("é", 36),
	}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/auth/register",
		map[string]string{"email": "ada@example.com", "password": "analytical"}, nil).Code)

	for _, body := range []map[string]string{
		{"email": "ada@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "analytical"},
	} {
		rec := s.do("POST", "/api/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", errorBody(t, rec)["error"])
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("POST", "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, s, rec.Result().Cookies())
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestSessionRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/api/auth/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorBody(t, rec)["error"])
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, errorBody(t, rec)["ok"])
}

func TestLoginIgnoresStaleCookie(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/auth/register",
		map[string]string{"email": "ada@example.com", "password": "analytical"}, nil).Code)

	r := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"analytical"}`))
	r.AddCookie(&http.Cookie{Name: s.env.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusOK, s.serve(r).Code)

	r = httptest.NewRequest("GET", "/api/auth/session", nil)
	r.AddCookie(&http.Cookie{Name: s.env.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, s.serve(r).Code)
}
