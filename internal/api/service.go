package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/veleda/ansuz/internal/apperr"
	"github.com/veleda/ansuz/internal/sse"
	"github.com/veleda/ansuz/internal/storage"
	"github.com/veleda/ansuz/internal/token"
	"github.com/veleda/ansuz/internal/users"
)

// Grant is a freshly issued pair of tokens for a signed-in user.
type Grant struct {
	Username      string
	Access        string
	Refresh       string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// Service coordinates subject storage, user accounts, and token issuing.
type Service struct {
	store      storage.Provider
	accounts   *users.DB
	broker     *sse.Broker
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new wiki service. broker may be nil when no SSE
// endpoint is mounted.
func NewService(store storage.Provider, accounts *users.DB, broker *sse.Broker, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      store,
		accounts:   accounts,
		broker:     broker,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(_ context.Context, username, password string) (*Grant, error) {
	if err := s.accounts.Create(username, password); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			// Taken usernames surface as unauthorized, indistinguishable
			// from a policy failure.
			return nil, fmt.Errorf("sign up %q: %w", username, apperr.ErrUnauthorized)
		}
		return nil, err
	}
	return s.issueGrant(username)
}

// SignIn authenticates with a password, or with a refresh token in place of
// one (silent refresh).
func (s *Service) SignIn(_ context.Context, username, password, refreshToken string) (*Grant, error) {
	if refreshToken != "" {
		claims, err := token.Parse(refreshToken, token.Refresh, s.secret)
		if err != nil {
			return nil, err
		}
		if claims.Username != username {
			return nil, fmt.Errorf("refresh token subject mismatch: %w", apperr.ErrUnauthorized)
		}
		return s.issueGrant(username)
	}

	if err := s.accounts.Authenticate(username, password); err != nil {
		return nil, err
	}
	return s.issueGrant(username)
}

func (s *Service) issueGrant(username string) (*Grant, error) {
	access, accessExpiry, err := token.Issue(username, token.Access, s.accessTTL, s.secret)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiry, err := token.Issue(username, token.Refresh, s.refreshTTL, s.secret)
	if err != nil {
		return nil, err
	}
	return &Grant{
		Username:      username,
		Access:        access,
		Refresh:       refresh,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// ListSubjects returns all subject names, sorted.
func (s *Service) ListSubjects(_ context.Context) ([]string, error) {
	return s.store.List()
}

// GetSubject reads a subject's markdown source.
func (s *Service) GetSubject(_ context.Context, name string) ([]byte, error) {
	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// UpdateSubject overwrites an existing subject's content.
func (s *Service) UpdateSubject(_ context.Context, name string, content []byte) error {
	ok, err := s.store.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	if err := s.store.Write(name, content); err != nil {
		return err
	}
	if s.broker != nil {
		s.broker.PublishSubjectEvent("updated", name)
	}
	return nil
}

// CreateSubject writes a brand-new subject.
func (s *Service) CreateSubject(_ context.Context, name string, content []byte) error {
	ok, err := s.store.Exists(name)
	if err != nil {
		return err
	}
	if ok {
		return apperr.ErrAlreadyExists
	}
	if err := s.store.Write(name, content); err != nil {
		return err
	}
	if s.broker != nil {
		s.broker.PublishSubjectEvent("created", name)
	}
	return nil
}
