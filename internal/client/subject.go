package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/veleda/ansuz/internal/apperr"
	"github.com/veleda/ansuz/internal/session"
)

// SubjectClient talks to the subject endpoints and implements subjects.API.
// Writes attach the bearer token from the session store; a stale token gets
// exactly one silent refresh and one retry before the failure is terminal.
type SubjectClient struct {
	base    string
	http    *http.Client
	session *session.Store
	logger  *slog.Logger
}

// NewSubjectClient creates a client for the subject API at base (no
// trailing slash).
func NewSubjectClient(base string, sess *session.Store, logger *slog.Logger) *SubjectClient {
	return &SubjectClient{
		base:    base,
		http:    &http.Client{Timeout: defaultTimeout},
		session: sess,
		logger:  logger,
	}
}

func (c *SubjectClient) subjectURL(name string) string {
	return c.base + "/subject/" + url.PathEscape(name)
}

// List fetches all subject names.
func (c *SubjectClient) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/subjects", nil)
	if err != nil {
		return nil, fmt.Errorf("subject client: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subject client: list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("subject client: list: %w", statusError(resp))
	}

	var payload struct {
		Subjects []string `json:"subjects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("subject client: decode list: %w", err)
	}
	return payload.Subjects, nil
}

// Get fetches a subject's markdown source.
func (c *SubjectClient) Get(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.subjectURL(name), nil)
	if err != nil {
		return "", fmt.Errorf("subject client: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("subject client: get %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("subject client: get %q: %w", name, statusError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("subject client: read %q: %w", name, err)
	}
	return string(data), nil
}

// Put updates an existing subject.
func (c *SubjectClient) Put(ctx context.Context, name, content string) error {
	return c.write(ctx, http.MethodPut, name, content)
}

// Post creates a new subject.
func (c *SubjectClient) Post(ctx context.Context, name, content string) error {
	return c.write(ctx, http.MethodPost, name, content)
}

// write performs an authenticated subject write. On 401 it refreshes the
// session once and retries once; a second 401 signs the session out and is
// terminal.
func (c *SubjectClient) write(ctx context.Context, method, name, content string) error {
	err := c.doAuthRequest(ctx, method, name, content)
	if err == nil || !errors.Is(err, apperr.ErrUnauthorized) {
		return err
	}

	if refreshErr := c.session.Refresh(ctx); refreshErr != nil {
		c.logger.Info("silent refresh failed, signing out",
			slog.String("error", refreshErr.Error()))
		c.session.SignOut(ctx)
		return fmt.Errorf("subject client: %s %q: %w", method, name, apperr.ErrUnauthorized)
	}
	c.logger.Debug("signed back in after refresh", slog.String("username", c.session.Username()))

	err = c.doAuthRequest(ctx, method, name, content)
	if err != nil && errors.Is(err, apperr.ErrUnauthorized) {
		c.session.SignOut(ctx)
	}
	return err
}

func (c *SubjectClient) doAuthRequest(ctx context.Context, method, name, content string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.subjectURL(name), strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("subject client: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token())
	req.Header.Set("Content-Type", "text/markdown")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subject client: %s %q: %w", method, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("subject client: %s %q: %w", method, name, statusError(resp))
	}
	return nil
}

