package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// graphKeyRegex matches store keys: a leading alphanumeric followed by
// alphanumerics, dots, dashes and underscores.
var graphKeyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateGraphKey validates a graph store key for safety and correctness.
// Keys become file names, object keys and database ids, so the rules are
// conservative:
//   - No empty keys
//   - Maximum length of 128 characters
//   - Only letters, digits, '.', '-' and '_'
//   - No path traversal sequences (..)
func ValidateGraphKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "graph key cannot be empty")
	}
	if len(key) > 128 {
		return New(ErrCodeInvalidKey, "graph key too long (max 128 characters)")
	}
	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidKey, "graph key cannot contain %q", "..")
	}
	if !graphKeyRegex.MatchString(key) {
		return New(ErrCodeInvalidKey, "invalid graph key: %q", key)
	}
	return nil
}

// ValidatePropertyName validates the name of a graph property or asset
// reference. Names are shown in editors and used for lookups, so they must
// be printable and reasonably short.
func ValidatePropertyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidName, "name too long (max 64 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "name contains invalid control characters")
		}
	}
	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidName, "name cannot start or end with whitespace")
	}
	return nil
}

// ValidateAssetPath validates an asset path referenced by a graph for
// safety. Asset paths are resolved by the rendering backend relative to
// its asset root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateAssetPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
