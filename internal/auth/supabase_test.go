package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tycoon/internal/cache"
)

func fakeSupabase(t *testing.T, userCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "hunter22" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken: "tok-1",
			TokenType:   "bearer",
			User:        SupabaseUser{ID: "user-1", Email: in["email"]},
		})
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		userCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(SupabaseUser{ID: "user-1", Email: "ada@example.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin(t *testing.T) {
	var calls atomic.Int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL+"/", "anon")

	session, err := c.Login(context.Background(), "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.AccessToken != "tok-1" || session.User.ID != "user-1" {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := c.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := c.Login(context.Background(), "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestVerifyAccessToken(t *testing.T) {
	var calls atomic.Int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL, "anon")

	user, err := c.VerifyAccessToken(context.Background(), "tok-1")
	if err != nil || user.ID != "user-1" {
		t.Fatalf("verify: user=%+v err=%v", user, err)
	}
	if _, err := c.VerifyAccessToken(context.Background(), "forged"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAccessTokenUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := fakeSupabase(t, &calls)
	c := NewSupabaseClient(srv.URL, "anon", WithTokenCache(cache.NewMemory(), time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := c.VerifyAccessToken(context.Background(), "tok-1"); err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestTokenKeyHidesToken(t *testing.T) {
	key := tokenKey("secret-token")
	if len(key) != len("auth:user:")+64 {
		t.Fatalf("unexpected key %q", key)
	}
	if key == tokenKey("other-token") {
		t.Fatalf("distinct tokens must not collide")
	}
}
