package route

import (
	"log/slog"
	"testing"

	"github.com/veleda/ansuz/internal/signal"
)

// fakeHistory records pushed paths.
type fakeHistory struct {
	pushed []string
}

func (h *fakeHistory) Push(path string) { h.pushed = append(h.pushed, path) }

func testRouter(t *testing.T, initial string) (*Router, *fakeHistory, *int) {
	t.Helper()
	hist := &fakeHistory{}
	bus := signal.NewBus()
	broadcasts := 0
	sub := bus.Subscribe(Topic, func(signal.Event) { broadcasts++ })
	t.Cleanup(sub.Cancel)
	return New(initial, hist, bus, slog.Default()), hist, &broadcasts
}

func TestNavigatePushesAndBroadcasts(t *testing.T) {
	r, hist, broadcasts := testRouter(t, "/")

	r.Navigate("/wiki/alpha")

	if r.Path() != "/wiki/alpha" {
		t.Errorf("path = %q", r.Path())
	}
	if len(hist.pushed) != 1 || hist.pushed[0] != "/wiki/alpha" {
		t.Errorf("pushed = %v", hist.pushed)
	}
	if *broadcasts != 1 {
		t.Errorf("broadcasts = %d, want 1", *broadcasts)
	}
}

func TestNavigateToSelfIsNoOp(t *testing.T) {
	for _, path := range []string{"/", "/wiki/alpha", "/wiki-new", "/wiki-new/beta"} {
		r, hist, broadcasts := testRouter(t, path)

		r.Navigate(path)

		if len(hist.pushed) != 0 {
			t.Errorf("navigate(%q) at %q pushed %v", path, path, hist.pushed)
		}
		if *broadcasts != 0 {
			t.Errorf("navigate(%q) at %q broadcast %d times", path, path, *broadcasts)
		}
	}
}

func TestNavigateInvalidPathRedirectsToRoot(t *testing.T) {
	for _, bad := range []string{"", "/nope", "/wiki", "/wiki/", "/wiki-new/", "wiki/alpha", "/wikinew"} {
		r, hist, _ := testRouter(t, "/wiki/alpha")

		r.Navigate(bad)

		if r.Path() != "/" {
			t.Errorf("navigate(%q): path = %q, want /", bad, r.Path())
		}
		if len(hist.pushed) != 1 || hist.pushed[0] != "/" {
			t.Errorf("navigate(%q): pushed = %v", bad, hist.pushed)
		}
	}
}

func TestSetDoesNotPushHistory(t *testing.T) {
	r, hist, broadcasts := testRouter(t, "/")

	r.Set("/wiki/alpha")

	if r.Path() != "/wiki/alpha" {
		t.Errorf("path = %q", r.Path())
	}
	if len(hist.pushed) != 0 {
		t.Errorf("set pushed history entries: %v", hist.pushed)
	}
	if *broadcasts != 1 {
		t.Errorf("broadcasts = %d, want 1", *broadcasts)
	}
}

func TestSetInvalidPathNormalizesToRoot(t *testing.T) {
	r, _, _ := testRouter(t, "/wiki/alpha")

	r.Set("/bogus/path")

	if r.Path() != "/" {
		t.Errorf("path = %q, want /", r.Path())
	}
}

func TestInvalidInitialPathNormalizes(t *testing.T) {
	r, hist, _ := testRouter(t, "/unknown")

	if r.Path() != "/" {
		t.Errorf("path = %q, want /", r.Path())
	}
	if len(hist.pushed) != 0 {
		t.Errorf("initial normalization pushed history: %v", hist.pushed)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"/", Root},
		{"/wiki/alpha", ViewSubject},
		{"/wiki-new", CreateNew},
		{"/wiki-new/beta", CreateNewNamed},
	}
	for _, c := range cases {
		r, _, _ := testRouter(t, c.path)
		if got := r.Kind(); got != c.want {
			t.Errorf("kind(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestSubjectName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/", ""},
		{"/wiki/alpha", "alpha"},
		{"/wiki/two%20words", "two words"},
		{"/wiki-new", ""},
		{"/wiki-new/beta", "beta"},
		{"/wiki-new/caf%C3%A9", "café"},
	}
	for _, c := range cases {
		r, _, _ := testRouter(t, c.path)
		if got := r.SubjectName(); got != c.want {
			t.Errorf("subjectName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestIsCreatingNew(t *testing.T) {
	cases := map[string]bool{
		"/":              false,
		"/wiki/alpha":    false,
		"/wiki-new":      true,
		"/wiki-new/beta": true,
	}
	for path, want := range cases {
		r, _, _ := testRouter(t, path)
		if got := r.IsCreatingNew(); got != want {
			t.Errorf("isCreatingNew(%q) = %v, want %v", path, got, want)
		}
	}
}
