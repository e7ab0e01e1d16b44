// Package subjects caches the wiki subject list and per-subject content and
// edit state, mediating fetch and push against the subject API.
package subjects

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/veleda/ansuz/internal/apperr"
	"github.com/veleda/ansuz/internal/signal"
)

// Topic is the bus topic subject changes broadcast on.
const Topic = "subjects"

// API is the subject endpoint the store mediates. Put and Post require prior
// authentication and reject with apperr.ErrUnauthorized on a stale token.
type API interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, content string) error
	Post(ctx context.Context, name, content string) error
}

// Subject is a wiki article's cached state.
//
// Invariants: Err set means Content is unreliable; Synced is false whenever
// Content has been edited locally and not yet pushed; Rendered is false
// whenever Content changed after the last render.
type Subject struct {
	Name     string
	Content  string
	Rendered bool
	Synced   bool
	Err      error
}

// Store holds the subject registry. All reads are synchronous against the
// cache; asynchronous operations capture API failures as data on the cached
// Subject where views need them, in addition to returning them.
type Store struct {
	mu       sync.Mutex
	api      API
	bus      *signal.Bus
	registry map[string]*Subject
}

// NewStore creates an empty store over the given API.
func NewStore(api API, bus *signal.Bus) *Store {
	return &Store{
		api:      api,
		bus:      bus,
		registry: make(map[string]*Subject),
	}
}

// ListNames returns the cached subject names, sorted. Pure and never fails.
func (s *Store) ListNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a snapshot of the cached subject, if any.
func (s *Store) Get(name string) (Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subj, ok := s.registry[name]
	if !ok {
		return Subject{}, false
	}
	return *subj, true
}

// RefreshList fetches the subject name list and reconciles the registry by
// set difference: names absent from the new list are removed, new names are
// added as empty placeholders, and existing entries are kept as-is (their
// content, drafts, and errors survive a re-listing). On failure the registry
// is untouched and the error is returned to the caller.
func (s *Store) RefreshList(ctx context.Context) error {
	names, err := s.api.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh list: %w", err)
	}

	s.mu.Lock()
	fresh := make(map[string]struct{}, len(names))
	for _, name := range names {
		fresh[name] = struct{}{}
		if _, ok := s.registry[name]; !ok {
			s.registry[name] = &Subject{Name: name}
		}
	}
	for name := range s.registry {
		if _, ok := fresh[name]; !ok {
			delete(s.registry, name)
		}
	}
	s.mu.Unlock()

	s.bus.Publish(Topic, names)
	return nil
}

// FetchContent fetches content for name and updates the registry. On success
// the subject is created or updated with Synced=true and a cleared error. On
// failure (including not-found) a subject with empty content and the error
// set is cached and broadcast, and the error is also returned: both the
// cached entry and the call result reflect the failure.
func (s *Store) FetchContent(ctx context.Context, name string) error {
	content, err := s.api.Get(ctx, name)

	s.mu.Lock()
	subj, ok := s.registry[name]
	if !ok {
		subj = &Subject{Name: name}
		s.registry[name] = subj
	}
	if err != nil {
		subj.Content = ""
		subj.Synced = false
		subj.Rendered = false
		subj.Err = err
	} else {
		subj.Content = content
		subj.Synced = true
		subj.Rendered = false
		subj.Err = nil
	}
	s.mu.Unlock()

	s.bus.Publish(Topic, name)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", name, err)
	}
	return nil
}

// UpdateDraft replaces the local content for a cached subject without
// touching the server. The subject becomes unsynced and its last render
// stale. No broadcast fires: an editor bound to the store supplies the
// keystrokes and must not be re-rendered by them.
func (s *Store) UpdateDraft(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subj, ok := s.registry[name]
	if !ok {
		return fmt.Errorf("draft %q: %w", name, apperr.ErrInvalidState)
	}
	subj.Content = content
	subj.Synced = false
	subj.Rendered = false
	return nil
}

// MarkRendered records that the current content has been rendered.
func (s *Store) MarkRendered(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subj, ok := s.registry[name]; ok {
		subj.Rendered = true
	}
}

// PushContent writes the cached content for name to the server. It fails
// immediately, without a network call, when no cached subject exists or the
// cached subject carries an error. On success the subject becomes synced; on
// failure the error is cached on the subject and returned.
func (s *Store) PushContent(ctx context.Context, name string) error {
	s.mu.Lock()
	subj, ok := s.registry[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("push %q: %w", name, apperr.ErrInvalidState)
	}
	if subj.Err != nil {
		cached := subj.Err
		s.mu.Unlock()
		return fmt.Errorf("push %q: %w", name, cached)
	}
	content := subj.Content
	s.mu.Unlock()

	err := s.api.Put(ctx, name, content)

	s.mu.Lock()
	// Re-look-up: the registry may have been reconciled while suspended.
	if subj, ok = s.registry[name]; ok {
		if err != nil {
			subj.Err = err
		} else {
			subj.Synced = true
			subj.Err = nil
		}
	}
	s.mu.Unlock()

	s.bus.Publish(Topic, name)
	if err != nil {
		return fmt.Errorf("push %q: %w", name, err)
	}
	return nil
}

// Create posts a brand-new subject. It fails immediately with
// apperr.ErrAlreadyExists when name is already in the registry. On success
// the subject is inserted as synced and a broadcast fires.
func (s *Store) Create(ctx context.Context, name, content string) error {
	s.mu.Lock()
	if _, ok := s.registry[name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("create %q: %w", name, apperr.ErrAlreadyExists)
	}
	s.mu.Unlock()

	if err := s.api.Post(ctx, name, content); err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}

	s.mu.Lock()
	s.registry[name] = &Subject{Name: name, Content: content, Synced: true}
	s.mu.Unlock()

	s.bus.Publish(Topic, name)
	return nil
}
