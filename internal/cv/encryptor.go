package cv

import "io"

// Encryptor transforms blobs on their way to and from a remote.
type Encryptor interface {
	// Setup performs one-time key generation.
	Setup() error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error

	// IsConfigured reports whether keys are available.
	IsConfigured() bool
}
