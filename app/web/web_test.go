package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/token"
	"github.com/umputun/jobboard/app/web/persistence"
)

// slowSearch holds SearchJobs until released
type slowSearch struct {
	Service
	started  chan struct{}
	release  chan struct{}
	finished atomic.Bool
}

func (s *slowSearch) SearchJobs(context.Context, string, string) ([]persistence.Job, error) {
	close(s.started)
	<-s.release
	s.finished.Store(true)
	return []persistence.Job{}, nil
}

type testEnv struct {
	srv    *Server
	h      http.Handler
	svc    *service.JobBoard
	tokens *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := token.New(token.Params{Secret: "test-secret"})
	require.NoError(t, err)

	var mu sync.Mutex
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &service.JobBoard{Store: store, Tokens: tokens, BcryptCost: bcrypt.MinCost, Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}}

	srv, err := New(Config{Service: svc, Tokens: tokens, Version: "test", AuthRateLimit: 1000})
	require.NoError(t, err)
	return &testEnv{srv: srv, h: srv.routes(), svc: svc, tokens: tokens}
}

// do sends request to routes, body is marshaled to json unless it is a string
func (e *testEnv) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch v := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

// signup registers and logs in a user, returns access token
func (e *testEnv) signup(t *testing.T, email, role string) string {
	t.Helper()
	w := e.do(t, "POST", "/auth/register", "", map[string]string{"email": email, "password": "secret", "role": role})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = e.do(t, "POST", "/auth/login", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestNew(t *testing.T) {
	env := newTestEnv(t)

	_, err := New(Config{Tokens: env.tokens})
	require.Error(t, err)
	_, err = New(Config{Service: env.svc})
	require.Error(t, err)

	srv, err := New(Config{Service: env.svc, Tokens: env.tokens})
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultCORSOrigin}, srv.corsOrigins)
	assert.InDelta(t, 5.0, srv.authLimit, 0.001)
}

func TestServer_Middleware(t *testing.T) {
	env := newTestEnv(t)

	t.Run("ping", func(t *testing.T) {
		w := env.do(t, "GET", "/ping", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})

	t.Run("app info", func(t *testing.T) {
		w := env.do(t, "GET", "/jobs", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jobboard", w.Header().Get("App-Name"))
		assert.Equal(t, "test", w.Header().Get("App-Version"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/post-job", http.NoBody)
		req.Header.Set("Origin", DefaultCORSOrigin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		w := httptest.NewRecorder()
		env.h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, DefaultCORSOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("cors unknown origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/jobs", http.NoBody)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		env.h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no cache on authenticated routes", func(t *testing.T) {
		tok := env.signup(t, "cache@example.com", "seeker")
		w := env.do(t, "GET", "/auth/me", tok, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-cache")
	})

	t.Run("body too large", func(t *testing.T) {
		big := `{"email":"` + string(bytes.Repeat([]byte("a"), 70*1024)) + `"}`
		w := env.do(t, "POST", "/auth/login", "", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestServer_AuthRateLimit(t *testing.T) {
	env := newTestEnv(t)
	srv, err := New(Config{Service: env.svc, Tokens: env.tokens, AuthRateLimit: 1})
	require.NoError(t, err)
	h := srv.routes()

	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(`{"email":"a@example.com","password":"x"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}
	assert.Equal(t, http.StatusUnauthorized, login().Code)
	w := login()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")

	// public routes are not limited
	for range 5 {
		req := httptest.NewRequest("GET", "/jobs", http.NoBody)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestServer_AuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "seeker@example.com", "seeker")

	foreign, err := token.New(token.Params{Secret: "other-secret"})
	require.NoError(t, err)
	foreignTok, err := foreign.Issue(1)
	require.NoError(t, err)
	ghostTok, err := env.tokens.Issue(999)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		msg    string
	}{
		{name: "no header", header: "", want: http.StatusUnauthorized, msg: "Missing authorization token"},
		{name: "basic scheme", header: "Basic abc", want: http.StatusUnauthorized, msg: "Missing authorization token"},
		{name: "empty bearer", header: "Bearer ", want: http.StatusUnauthorized, msg: "Missing authorization token"},
		{name: "garbage", header: "Bearer abc", want: http.StatusUnauthorized, msg: "Invalid or expired token"},
		{name: "foreign secret", header: "Bearer " + foreignTok, want: http.StatusUnauthorized, msg: "Invalid or expired token"},
		{name: "unknown user", header: "Bearer " + ghostTok, want: http.StatusUnauthorized, msg: "User not found"},
		{name: "valid", header: "Bearer " + tok, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + tok, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/auth/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.h.ServeHTTP(w, req)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want != http.StatusOK {
				resp := decodeError(t, w)
				assert.Equal(t, "unauthenticated", resp.Error)
				assert.Equal(t, tt.msg, resp.Msg)
			}
		})
	}
}

func TestServer_Run(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx, "127.0.0.1:18743") }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18743/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunWaitsForInflightRequests(t *testing.T) {
	env := newTestEnv(t)
	svc := &slowSearch{Service: env.svc, started: make(chan struct{}), release: make(chan struct{})}
	srv, err := New(Config{Service: svc, Tokens: env.tokens, Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:18746") }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18746/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	respCode := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://127.0.0.1:18746/jobs")
		if err != nil {
			respCode <- 0
			return
		}
		defer resp.Body.Close()
		respCode <- resp.StatusCode
	}()
	<-svc.started

	cancel()
	select {
	case <-done:
		t.Fatal("run returned while a request was in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(svc.release)
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, svc.finished.Load())
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, http.StatusOK, <-respCode)
}
