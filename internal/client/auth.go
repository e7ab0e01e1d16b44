// Package client implements the HTTP clients for the wiki's subject and
// auth APIs. The subject client owns the retry-once-after-refresh handling
// for stale access tokens; the stores themselves never retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veleda/ansuz/internal/apperr"
	"github.com/veleda/ansuz/internal/session"
)

const defaultTimeout = 10 * time.Second

// AuthClient talks to the auth endpoints and implements session.API.
type AuthClient struct {
	base string
	http *http.Client
}

// NewAuthClient creates a client for the auth API at base (no trailing
// slash).
func NewAuthClient(base string) *AuthClient {
	return &AuthClient{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
	}
}

type sessionPayload struct {
	Username         string    `json:"username"`
	Token            string    `json:"token"`
	Refresh          string    `json:"refresh"`
	TokenExpiresAt   time.Time `json:"token_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (c *AuthClient) SignIn(ctx context.Context, username, password, refreshToken string) (session.Tokens, error) {
	body := map[string]string{"username": username}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	} else {
		body["password"] = password
	}
	return c.sessionRequest(ctx, "/auth/signin", body)
}

func (c *AuthClient) SignUp(ctx context.Context, username, password string) (session.Tokens, error) {
	return c.sessionRequest(ctx, "/auth/signup", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *AuthClient) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/signout", nil)
	if err != nil {
		return fmt.Errorf("auth client: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth client: sign out: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("auth client: sign out: %w", statusError(resp))
	}
	return nil
}

func (c *AuthClient) sessionRequest(ctx context.Context, path string, body map[string]string) (session.Tokens, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("auth client: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return session.Tokens{}, fmt.Errorf("auth client: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("auth client: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return session.Tokens{}, fmt.Errorf("auth client: %s: %w", path, statusError(resp))
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return session.Tokens{}, fmt.Errorf("auth client: decode: %w", err)
	}
	return session.Tokens{
		Username:      payload.Username,
		Access:        payload.Token,
		Refresh:       payload.Refresh,
		AccessExpiry:  payload.TokenExpiresAt,
		RefreshExpiry: payload.RefreshExpiresAt,
	}, nil
}

// statusError maps an error response onto the shared taxonomy, consuming the
// body.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrAlreadyExists
	default:
		if body.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}
