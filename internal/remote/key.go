package remote

import (
	"fmt"
	"path"
	"strings"
)

// ValidateKey checks that key is a clean, slash-separated relative path that
// stays inside the store.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") || strings.ContainsRune(key, 0) {
		return fmt.Errorf("invalid key %q", key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("key %q is not clean", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("key %q escapes the store", key)
		}
	}
	return nil
}
