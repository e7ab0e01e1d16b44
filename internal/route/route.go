// Package route maps the current location path to the application's logical
// view state and keeps it in sync with browser-style history.
package route

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/veleda/ansuz/internal/signal"
)

// Topic is the bus topic route changes broadcast on.
const Topic = "route"

// Kind identifies the logical view a path resolves to.
type Kind int

const (
	Root Kind = iota
	ViewSubject
	CreateNew
	CreateNewNamed
)

// History is the navigate/redirect collaborator. Push records a new history
// entry for path; the router never pops entries itself, it only reacts to
// pops via Set.
type History interface {
	Push(path string)
}

var (
	viewSubjectRE    = regexp.MustCompile(`^/wiki/.+$`)
	createNewNamedRE = regexp.MustCompile(`^/wiki-new/.+$`)
)

// Router holds the current route path.
//
// A path is valid when it is one of:
//  1. root ("/")
//  2. a subject view ("/wiki/<name>")
//  3. subject creation ("/wiki-new" or "/wiki-new/<name>")
//
// Invalid paths are normalized to root before being stored.
type Router struct {
	mu     sync.Mutex
	path   string
	hist   History
	bus    *signal.Bus
	logger *slog.Logger
}

// New creates a router whose initial state derives from initialPath, as read
// from the location at load time. An invalid initial path normalizes to root
// without a history push.
func New(initialPath string, hist History, bus *signal.Bus, logger *slog.Logger) *Router {
	if !validPath(initialPath) {
		logger.Debug("invalid initial path", slog.String("path", initialPath))
		initialPath = "/"
	}
	return &Router{path: initialPath, hist: hist, bus: bus, logger: logger}
}

// Navigate moves to path as an in-app navigation: the route updates, a new
// history entry is pushed, and a change broadcast fires. Navigating to the
// current path is a no-op. Invalid paths redirect to root.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	if r.path == path {
		r.logger.Debug("navigating to self", slog.String("path", path))
		r.mu.Unlock()
		return
	}

	if !validPath(path) {
		r.logger.Debug("invalid path, navigating to root", slog.String("path", path))
		path = "/"
	}

	r.path = path
	r.hist.Push(path)
	r.mu.Unlock()

	r.logger.Debug("navigated", slog.String("path", path))
	r.bus.Publish(Topic, path)
}

// Set moves to path without pushing a history entry. It is the handler for
// back/forward (history pop) events, where pushing again would loop. Invalid
// paths normalize to root.
func (r *Router) Set(path string) {
	if !validPath(path) {
		r.logger.Debug("invalid path, setting root", slog.String("path", path))
		path = "/"
	}

	r.mu.Lock()
	r.path = path
	r.mu.Unlock()

	r.logger.Debug("set path", slog.String("path", path))
	r.bus.Publish(Topic, path)
}

// Path returns the current route path.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Kind returns the logical view state for the current path.
func (r *Router) Kind() Kind {
	switch p := r.Path(); {
	case viewSubjectRE.MatchString(p):
		return ViewSubject
	case p == "/wiki-new":
		return CreateNew
	case createNewNamedRE.MatchString(p):
		return CreateNewNamed
	default:
		return Root
	}
}

// SubjectName derives the subject name from the current path for both the
// view and create-new grammars. It returns "" when the path carries no name.
func (r *Router) SubjectName() string {
	p := r.Path()
	var raw string
	switch {
	case viewSubjectRE.MatchString(p):
		raw = strings.TrimPrefix(p, "/wiki/")
	case createNewNamedRE.MatchString(p):
		raw = strings.TrimPrefix(p, "/wiki-new/")
	default:
		return ""
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}

// IsCreatingNew reports whether the current path matches the create-new
// grammar.
func (r *Router) IsCreatingNew() bool {
	k := r.Kind()
	return k == CreateNew || k == CreateNewNamed
}

func validPath(path string) bool {
	if path == "/" || path == "/wiki-new" {
		return true
	}
	return viewSubjectRE.MatchString(path) || createNewNamedRE.MatchString(path)
}
