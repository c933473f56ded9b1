package encryption

import (
	"fmt"
	"io"

	"cv-go/internal/cv"
)

// PlainEncryptor passes data through unchanged.
type PlainEncryptor struct{}

var _ cv.Encryptor = PlainEncryptor{}

func (PlainEncryptor) Setup() error { return nil }

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) IsConfigured() bool { return true }
