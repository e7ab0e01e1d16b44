// Package storage defines the subject file-system abstraction.
package storage

// Provider is the interface for subject content operations.
type Provider interface {
	// List returns every stored subject name, sorted.
	List() ([]string, error)
	// Read returns the markdown source for name.
	Read(name string) ([]byte, error)
	// Write atomically writes content for name, creating it if absent.
	Write(name string, content []byte) error
	// Exists reports whether a subject with name is stored.
	Exists(name string) (bool, error)
	// Delete removes the subject with name.
	Delete(name string) error
}
