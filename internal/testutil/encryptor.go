package testutil

import (
	"cv-go/internal/cv"
	"cv-go/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() cv.Encryptor {
	return encryption.NewTestEncryptor()
}
