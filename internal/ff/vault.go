package ff

import "io"

// Vault is remote storage for exported snapshots.
// Keys are slash-separated; implementations map them onto their own layout.
type Vault interface {
	// Put stores the object at key, replacing any existing object.
	// size is the number of bytes that will be read from r.
	Put(key string, r io.Reader, size int64) error

	// Get writes the object at key to w.
	Get(key string, w io.Writer) error

	// List returns the keys that start with prefix, sorted.
	List(prefix string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
