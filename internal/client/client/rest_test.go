package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake REST backend
 *************/

type fakeBackend struct {
	mu sync.Mutex

	secret  []byte
	seq     int
	records map[string]map[string]any

	access  string
	refresh string

	loginCalls   int
	refreshCalls int
	seenTokens   []string

	failStatus int
	delay      time.Duration
}

func (b *fakeBackend) mint(exp time.Time) string {
	b.seq++
	claims := jwt.RegisteredClaims{
		ID:        fmt.Sprintf("t%d", b.seq),
		Subject:   "jane",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *fakeBackend) issue() map[string]string {
	b.access = b.mint(time.Now().Add(time.Hour))
	b.refresh = fmt.Sprintf("r%d", b.seq)
	return map[string]string{"access_token": b.access, "refresh_token": b.refresh}
}

// invalidate makes the server reject the current access token while its
// exp claim still looks valid to the client.
func (b *fakeBackend) invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = b.mint(time.Now().Add(time.Hour))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", b.refreshTokens).Methods(http.MethodPost)
	r.HandleFunc("/auth/{category}", b.authed(b.get)).Methods(http.MethodGet)
	r.HandleFunc("/auth/{category}", b.authed(b.put)).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/auth/{category}", b.authed(b.del)).Methods(http.MethodDelete)
	return r
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginCalls++

	var req struct{ Username, Password string }
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Username != "jane" || req.Password != "pw" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad credentials"})
		return
	}
	writeJSON(w, http.StatusOK, b.issue())
}

func (b *fakeBackend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshCalls++

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken == "" || req.RefreshToken != b.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	writeJSON(w, http.StatusOK, b.issue())
}

func (b *fakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		delay := b.delay
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.seenTokens = append(b.seenTokens, tok)
		ok := tok != "" && tok == b.access
		fail := b.failStatus
		b.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": common.ErrTokenExpired.Error()})
			return
		}
		if fail != 0 {
			writeJSON(w, fail, map[string]string{"error": "boom"})
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[mux.Vars(r)["category"]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (b *fakeBackend) put(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cat := mux.Vars(r)["category"]
	rec := b.records[cat]
	if rec == nil {
		rec = map[string]any{}
	}
	for k, v := range patch {
		rec[k] = v
	}
	b.records[cat] = rec
	writeJSON(w, http.StatusOK, rec)
}

func (b *fakeBackend) del(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, mux.Vars(r)["category"])
	w.WriteHeader(http.StatusNoContent)
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		secret:  []byte("0123456789abcdef0123456789abcdef"),
		records: map[string]map[string]any{},
	}
	srv := httptest.NewServer(b.router())
	t.Cleanup(srv.Close)
	return b, srv
}

func loggedIn(t *testing.T, srv *httptest.Server) *RESTClient {
	t.Helper()
	c := NewRESTClient(srv.URL, 2*time.Second)
	require.NoError(t, c.Login(context.Background(), "jane", "pw"))
	return c
}

/*************
 * Tests
 *************/

func TestREST_LoginFetchSend(t *testing.T) {
	ctx := context.Background()
	b, srv := newFakeBackend(t)
	b.records["profile"] = map[string]any{"id": "u1", "name": "Old"}

	c := loggedIn(t, srv)
	assert.Equal(t, b.access, c.Session().AccessToken)
	assert.Equal(t, b.refresh, c.Session().RefreshToken)

	got, err := c.Fetch(ctx, models.CategoryProfile.Endpoint())
	require.NoError(t, err)
	assert.Equal(t, models.Payload{"id": "u1", "name": "Old"}, got)

	got, err = c.Send(ctx, models.MethodPut, models.CategoryProfile.Endpoint(), models.Payload{"name": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, models.Payload{"id": "u1", "name": "Jane"}, got)

	got, err = c.Send(ctx, models.MethodDelete, models.CategoryProfile.Endpoint(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, b.records, "profile")
}

func TestREST_LoginRejected(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := NewRESTClient(srv.URL, time.Second)

	err := c.Login(context.Background(), "jane", "nope")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	var se *common.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad credentials", se.Message)
	assert.Empty(t, c.Session().AccessToken)
}

func TestREST_RefreshesOn401AndRetries(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.records["emergency"] = map[string]any{"contact": "Bob"}
	c := loggedIn(t, srv)

	b.invalidate()

	got, err := c.Fetch(context.Background(), "/auth/emergency")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got["contact"])
	assert.Equal(t, 1, b.refreshCalls)
	assert.Equal(t, b.access, c.Session().AccessToken)
}

func TestREST_ProactiveRefreshOfExpiredToken(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.records["permissions"] = map[string]any{"camera": true}
	b.issue()
	expired := b.mint(time.Now().Add(-time.Minute))

	c := NewRESTClient(srv.URL, time.Second)
	c.Restore(Session{AccessToken: expired, RefreshToken: b.refresh})

	_, err := c.Fetch(context.Background(), "/auth/permissions")
	require.NoError(t, err)
	assert.Equal(t, 1, b.refreshCalls)
	assert.NotContains(t, b.seenTokens, expired, "an expired token is never sent")
}

func TestREST_RestoreWithRefreshTokenOnly(t *testing.T) {
	b, srv := newFakeBackend(t)
	b.records["profile"] = map[string]any{"name": "Jane"}
	b.issue()

	c := NewRESTClient(srv.URL, time.Second)
	c.Restore(Session{RefreshToken: b.refresh})

	_, err := c.Fetch(context.Background(), "/auth/profile")
	require.NoError(t, err)
	assert.Equal(t, 1, b.refreshCalls)
	assert.NotEmpty(t, c.Session().AccessToken)
}

func TestREST_RefreshRejected(t *testing.T) {
	b, srv := newFakeBackend(t)
	c := loggedIn(t, srv)

	b.invalidate()
	b.refresh = "rotated-elsewhere"

	_, err := c.Fetch(context.Background(), "/auth/profile")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 1, b.refreshCalls)
}

func TestREST_ServerErrors(t *testing.T) {
	ctx := context.Background()
	b, srv := newFakeBackend(t)
	c := loggedIn(t, srv)

	_, err := c.Fetch(ctx, "/auth/notifications")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, err, common.ErrServer)
	assert.False(t, common.IsNetwork(err))

	b.failStatus = http.StatusInternalServerError
	_, err = c.Send(ctx, models.MethodPut, "/auth/profile", models.Payload{"x": 1})
	var se *common.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "boom", se.Message)
}

func TestREST_NetworkErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		_, srv := newFakeBackend(t)
		url := srv.URL
		srv.Close()

		c := NewRESTClient(url, time.Second)
		err := c.Ping(context.Background())
		require.ErrorIs(t, err, common.ErrNetwork)
		var ne *common.NetworkError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, "GET /ping", ne.Op)
	})

	t.Run("timeout", func(t *testing.T) {
		b, srv := newFakeBackend(t)
		c := loggedIn(t, srv)
		c.http.Timeout = 20 * time.Millisecond
		b.delay = 200 * time.Millisecond

		_, err := c.Fetch(context.Background(), "/auth/profile")
		require.True(t, common.IsNetwork(err), "got %v", err)
	})

	t.Run("caller cancel is not a network error", func(t *testing.T) {
		_, srv := newFakeBackend(t)
		c := NewRESTClient(srv.URL, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.Ping(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, common.ErrNetwork))
	})
}

func TestREST_Ping(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := NewRESTClient(srv.URL+"/", time.Second)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}
