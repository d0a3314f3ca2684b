// Package auth signs players in through Supabase and resolves bearer tokens
// to users.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tycoon/internal/cache"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid access token")
)

type SupabaseClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client

	tokens   cache.Store
	tokenTTL time.Duration
}

type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         SupabaseUser `json:"user"`
}

type SupabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Option func(*SupabaseClient)

func WithHTTPClient(c *http.Client) Option {
	return func(s *SupabaseClient) { s.httpClient = c }
}

// WithTokenCache remembers verified tokens for ttl so authenticated routes
// do not round-trip to Supabase on every request.
func WithTokenCache(store cache.Store, ttl time.Duration) Option {
	return func(s *SupabaseClient) {
		s.tokens = store
		s.tokenTTL = ttl
	}
}

func NewSupabaseClient(baseURL, anonKey string, opts ...Option) *SupabaseClient {
	c := &SupabaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SupabaseClient) SignUp(ctx context.Context, email, password string) (Session, error) {
	var out Session
	if err := c.postJSON(ctx, "/auth/v1/signup", credentials(email, password), &out); err != nil {
		return Session{}, err
	}
	return out, nil
}

func (c *SupabaseClient) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	var out Session
	err := c.postJSON(ctx, "/auth/v1/token?grant_type=password", credentials(email, password), &out)
	var se *statusError
	if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusUnauthorized) {
		return Session{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, se.body)
	}
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

func (c *SupabaseClient) VerifyAccessToken(ctx context.Context, accessToken string) (SupabaseUser, error) {
	key := tokenKey(accessToken)
	if user, ok := c.cachedUser(ctx, key); ok {
		return user, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return SupabaseUser{}, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SupabaseUser{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return SupabaseUser{}, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return SupabaseUser{}, fmt.Errorf("verify token status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var user SupabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return SupabaseUser{}, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return SupabaseUser{}, ErrInvalidToken
	}
	c.rememberUser(ctx, key, user)
	return user, nil
}

func (c *SupabaseClient) cachedUser(ctx context.Context, key string) (SupabaseUser, bool) {
	if c.tokens == nil {
		return SupabaseUser{}, false
	}
	raw, ok, err := c.tokens.Get(ctx, key)
	if err != nil || !ok {
		return SupabaseUser{}, false
	}
	var user SupabaseUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return SupabaseUser{}, false
	}
	return user, true
}

func (c *SupabaseClient) rememberUser(ctx context.Context, key string, user SupabaseUser) {
	if c.tokens == nil || c.tokenTTL <= 0 {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	// A failed write only costs a round-trip on the next request.
	_ = c.tokens.Set(ctx, key, string(raw), c.tokenTTL)
}

// tokenKey hashes the token so raw credentials never land in the cache.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:user:" + hex.EncodeToString(sum[:])
}

func credentials(email, password string) map[string]string {
	return map[string]string{
		"email":    email,
		"password": password,
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase status %d: %s", e.code, e.body)
}

func (c *SupabaseClient) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
