package testutil

import (
	"ffctl/internal/encryption"
)

// NewTestEncryptor creates a test encryptor that accepts only passphrase.
func NewTestEncryptor(passphrase string) *encryption.TestEncryptor {
	e := encryption.NewTestEncryptor()
	e.Setup(passphrase)
	return e
}
