package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/auth"
	"github.com/andrewpaige1/studyplan-api/config"
	"github.com/andrewpaige1/studyplan-api/extract"
	"github.com/andrewpaige1/studyplan-api/handlers"
	"github.com/andrewpaige1/studyplan-api/internal/testutil"
	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/middleware"
	"github.com/andrewpaige1/studyplan-api/models"
)

// stubLLM records requests and answers with respond.
type stubLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(llm.Request) (*llm.Response, error)
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return nil, fmt.Errorf("unexpected llm call")
	}
	return respond(req)
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubLLM) reply(resp *llm.Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = func(llm.Request) (*llm.Response, error) { return resp, err }
}

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	llm     *stubLLM
	env     config.Environment
	now     time.Time
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	env := config.Environment{
		IsDevelopment: true,
		JWTSecret:     "test-secret-that-is-at-least-32-chars",
		JWTIssuer:     "studyplan-api",
		JWTAudience:   "studyplan-web",
		SessionTTL:    time.Hour,
		CookieName:    "session_token",
		Domain:        "localhost",
		Location:      time.UTC,
		LLMMaxTokens:  4000,
	}
	// tokens are checked against the wall clock, so the handler clock must
	// not run ahead of it
	now := time.Now().UTC().Truncate(time.Second)
	stub := &stubLLM{}

	h := &handlers.DBHandler{
		DB:        db,
		LLM:       stub,
		Extractor: extract.PlainText{},
		Env:       env,
		Now:       func() time.Time { return now },
	}
	ensure, err := middleware.EnsureValidToken(env, handlers.PublicPaths...)
	require.NoError(t, err)

	return &testServer{t: t, db: db, llm: stub, env: env, now: now, handler: ensure(h.Routes())}
}

func (s *testServer) today() time.Time {
	return time.Date(s.now.Year(), s.now.Month(), s.now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *testServer) token(user models.User) string {
	s.t.Helper()
	token, _, err := auth.CreateToken(s.env, user, s.now)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) serve(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

// do sends body as JSON; user may be nil for an anonymous request.
func (s *testServer) do(method, path string, body interface{}, user *models.User, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if user != nil {
		r.AddCookie(&http.Cookie{Name: s.env.CookieName, Value: s.token(*user)})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	return s.serve(r)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	decode(t, rec, &body)
	return body
}

func countTasks(t *testing.T, db *gorm.DB, blockID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Task{}).Where("study_block_id = ?", blockID).Count(&n).Error)
	return n
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
