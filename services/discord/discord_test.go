package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func testService(srvURL string, ttl time.Duration) *service {
	return &service{
		http:     resty.New(),
		botToken: "bot-token",
		baseURL:  srvURL,
		cacheTTL: ttl,
		cache:    make(map[string]Profile),
	}
}

func TestGetAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "identify", r.PostForm.Get("scope"))
		writeJSON(t, w, http.StatusOK, AuthResponse{
			TokenType:    "Bearer",
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    604800,
		})
	}))
	defer srv.Close()

	auth := NewAuthService(resty.New(), "client-id", "client-secret", "http://localhost/signin")
	auth.tokenURL = srv.URL

	resp, err := auth.GetAccessToken(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "Bearer access", resp.Bearer())
	assert.Equal(t, "refresh", resp.RefreshToken)
}

func TestGetAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, AuthError{
			ErrorType:    "invalid_grant",
			ErrorMessage: "Invalid authorization code",
		})
	}))
	defer srv.Close()

	auth := NewAuthService(resty.New(), "client-id", "client-secret", "http://localhost/signin")
	auth.tokenURL = srv.URL

	_, err := auth.GetAccessToken(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Contains(t, err.Error(), "Invalid authorization code")
}

func TestRefreshAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		writeJSON(t, w, http.StatusOK, AuthResponse{TokenType: "Bearer", AccessToken: "new"})
	}))
	defer srv.Close()

	auth := NewAuthService(resty.New(), "client-id", "client-secret", "http://localhost/signin")
	auth.tokenURL = srv.URL

	resp, err := auth.RefreshAccessToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new", resp.AccessToken)
}

func TestGetCurrentUserRetriesAfterThrottle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			writeJSON(t, w, http.StatusTooManyRequests, throttled{RetryAfter: 30})
			return
		}
		writeJSON(t, w, http.StatusOK, Profile{ID: "100", Username: "alice"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, time.Minute)
	profile, err := svc.GetCurrentUser(context.Background(), "Bearer token")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetCurrentUserUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "401: Unauthorized"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, time.Minute)
	_, err := svc.GetCurrentUser(context.Background(), "Bearer expired")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchUserCachesForTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bot bot-token", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, Profile{ID: "100", Username: "alice"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, 60*time.Millisecond)
	ctx := context.Background()

	first, err := svc.FetchUser(ctx, "100", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Username)

	_, err = svc.FetchUser(ctx, "100", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second fetch within the TTL must be served from cache")

	_, err = svc.FetchUser(ctx, "100", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "force must bypass the cache")

	time.Sleep(150 * time.Millisecond)
	_, err = svc.FetchUser(ctx, "100", false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "entry must be evicted after the TTL")
}

func TestFetchUserWaitsOutRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(headerRateLimitRemaining, "0")
			w.Header().Set(headerRateLimitResetAfter, "0.3")
		}
		writeJSON(t, w, http.StatusOK, Profile{ID: r.URL.Path[len("/users/"):], Username: "u"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, time.Minute)
	ctx := context.Background()

	_, err := svc.FetchUser(ctx, "100", false)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.FetchUser(ctx, "200", false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 280*time.Millisecond,
		"second fetch must wait until the quoted reset time elapses")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchUserRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerRateLimitRemaining, "0")
		w.Header().Set(headerRateLimitResetAfter, "5")
		writeJSON(t, w, http.StatusOK, Profile{ID: "100"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, time.Minute)
	_, err := svc.FetchUser(context.Background(), "100", false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.FetchUser(ctx, "200", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchUserErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Unknown User"})
	}))
	defer srv.Close()

	svc := testService(srv.URL, time.Minute)
	_, err := svc.FetchUser(context.Background(), "missing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
