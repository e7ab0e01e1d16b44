package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS implements Provider backed by the local file system. Each subject is a
// single "<escaped-name>.md" file directly under the root directory; the
// escaping keeps arbitrary subject names (spaces, slashes, unicode) inside
// one flat directory.
type FS struct {
	root string // absolute path to the subject directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// filePath maps a subject name onto its file under root and rejects any
// result that escapes it.
func (f *FS) filePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: empty subject name")
	}
	escaped := url.PathEscape(name) + ".md"
	joined := filepath.Join(f.root, escaped)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("storage: name escapes subject root: %s", name)
	}
	return abs, nil
}

// List returns every stored subject name, sorted.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		escaped := strings.TrimSuffix(e.Name(), ".md")
		name, err := url.PathUnescape(escaped)
		if err != nil {
			// Not one of ours; skip.
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the raw markdown for a subject.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.filePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.filePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Exists reports whether a subject file is present.
func (f *FS) Exists(name string) (bool, error) {
	abs, err := f.filePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return true, nil
}

// Delete removes a subject file.
func (f *FS) Delete(name string) error {
	abs, err := f.filePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// SubjectFile reports whether the basename of path looks like a stored
// subject and returns the decoded name. The watcher uses it to translate
// fsnotify paths back into subject names.
func SubjectFile(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, ".") {
		return "", false
	}
	name, err := url.PathUnescape(strings.TrimSuffix(base, ".md"))
	if err != nil {
		return "", false
	}
	return name, true
}
