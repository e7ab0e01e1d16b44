// Package session tracks the signed-in user and their tokens, mediating
// sign-in, sign-up, sign-out, and silent refresh against the auth API, and
// persisting enough state to survive a reload.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veleda/ansuz/internal/signal"
)

// Topic is the bus topic session changes broadcast on.
const Topic = "session"

// StorageKey is the single durable-storage key the session persists under.
const StorageKey = "ansuz.session"

// Tokens is an auth API grant. Expiries are issued by the server and treated
// as opaque data here: the store compares them against the clock but never
// inspects the token strings themselves.
type Tokens struct {
	Username      string
	Access        string
	Refresh       string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// API is the auth endpoint the store delegates to. SignIn accepts either a
// password or a refresh token in its place (silent refresh); failures reject
// with apperr.ErrUnauthorized.
type API interface {
	SignIn(ctx context.Context, username, password, refreshToken string) (Tokens, error)
	SignUp(ctx context.Context, username, password string) (Tokens, error)
	SignOut(ctx context.Context) error
}

// persisted is the durable form of a session. The access token is
// deliberately absent: only the refresh token survives a reload.
type persisted struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refreshToken"`
}

// Store is the live session state.
//
// Expiry is detected lazily: accessors compare timestamps at call time, no
// timer fires when a token goes stale.
type Store struct {
	mu     sync.Mutex
	api    API
	keys   Keystore
	bus    *signal.Bus
	logger *slog.Logger
	now    func() time.Time
	sess   Tokens
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a signed-out session store.
func NewStore(api API, keys Keystore, bus *signal.Bus, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{api: api, keys: keys, bus: bus, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn authenticates with a password. On success the session updates, the
// refresh token is persisted, and a broadcast fires. On failure the session
// is untouched.
func (s *Store) SignIn(ctx context.Context, username, password string) error {
	tokens, err := s.api.SignIn(ctx, username, password, "")
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	s.adopt(tokens)
	return nil
}

// SignUp registers a new account and signs it in. Same contract as SignIn;
// the server additionally rejects taken usernames and the reference "badpass"
// password policy.
func (s *Store) SignUp(ctx context.Context, username, password string) error {
	tokens, err := s.api.SignUp(ctx, username, password)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	s.adopt(tokens)
	return nil
}

// SignOut clears durable storage and the live session. It always succeeds;
// the server call is best-effort.
func (s *Store) SignOut(ctx context.Context) {
	if err := s.api.SignOut(ctx); err != nil {
		s.logger.Debug("sign-out call failed", slog.String("error", err.Error()))
	}
	if err := s.keys.Delete(StorageKey); err != nil {
		s.logger.Warn("clear persisted session failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	username := s.sess.Username
	s.sess = Tokens{}
	s.mu.Unlock()

	s.logger.Info("signed out", slog.String("username", username))
	s.bus.Publish(Topic, "")
}

// Refresh performs one silent refresh using the stored refresh token. It is
// the API client's tool for the 401-retry dance; the store never refreshes
// on its own.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	username, refresh := s.sess.Username, s.sess.Refresh
	s.mu.Unlock()

	tokens, err := s.api.SignIn(ctx, username, "", refresh)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	s.adopt(tokens)
	s.logger.Info("session refreshed", slog.String("username", tokens.Username))
	return nil
}

// Restore is the explicit startup-recovery entry point: when durable storage
// holds a persisted session, it attempts a silent sign-in with the refresh
// token in place of a password. Failure is logged and swallowed; the user
// simply ends up signed out.
func (s *Store) Restore(ctx context.Context) {
	raw, ok, err := s.keys.Get(StorageKey)
	if err != nil {
		s.logger.Warn("read persisted session failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}

	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("corrupt persisted session", slog.String("error", err.Error()))
		return
	}

	tokens, err := s.api.SignIn(ctx, p.Username, "", p.RefreshToken)
	if err != nil {
		s.logger.Info("session recovery failed",
			slog.String("username", p.Username),
			slog.String("error", err.Error()))
		return
	}
	s.adopt(tokens)
	s.logger.Info("session restored", slog.String("username", tokens.Username))
}

// Username returns the signed-in username, or "" when no token is still
// valid.
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.anyTokenValid() {
		return ""
	}
	return s.sess.Username
}

// Token returns the current access token, or "" when it has expired.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.now().Before(s.sess.AccessExpiry) {
		return ""
	}
	return s.sess.Access
}

// SignedIn reports whether at least one token is currently valid.
func (s *Store) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyTokenValid()
}

func (s *Store) anyTokenValid() bool {
	now := s.now()
	return now.Before(s.sess.AccessExpiry) || now.Before(s.sess.RefreshExpiry)
}

// adopt installs a fresh grant, persists the refresh half, and broadcasts.
func (s *Store) adopt(tokens Tokens) {
	s.mu.Lock()
	s.sess = tokens
	s.mu.Unlock()

	raw, err := json.Marshal(persisted{Username: tokens.Username, RefreshToken: tokens.Refresh})
	if err == nil {
		err = s.keys.Set(StorageKey, string(raw))
	}
	if err != nil {
		s.logger.Warn("persist session failed", slog.String("error", err.Error()))
	}

	s.logger.Info("signed in", slog.String("username", tokens.Username))
	s.bus.Publish(Topic, tokens.Username)
}
