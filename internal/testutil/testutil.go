// Package testutil provides shared test helpers for setting up subject
// directories and user databases.
package testutil

import (
	"os"
	"testing"

	"github.com/veleda/ansuz/internal/storage"
	"github.com/veleda/ansuz/internal/users"
)

// TestUsers creates a temporary user database that is automatically cleaned up.
func TestUsers(t *testing.T) *users.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := users.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWiki creates a temporary subject directory with a storage.Provider.
func TestWiki(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
