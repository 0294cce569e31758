package errors

import (
	"strings"
	"unicode"
)

// ValidateSourcePath validates a user-supplied source path for safety.
// It rejects paths that could be used for traversal or injection when the
// path is echoed into shell-adjacent contexts (cache keys, API responses).
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No control characters or null bytes
//   - Maximum length of 4096 characters
//
// Existence checks are left to the parser that opens the path.
func ValidateSourcePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "source path cannot be empty")
	}

	if len(path) > 4096 {
		return New(ErrCodeInvalidPath, "source path too long (max 4096 characters)")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "source path contains control characters")
		}
	}

	if strings.Contains(path, "\x00") {
		return New(ErrCodeInvalidPath, "source path contains null bytes")
	}

	return nil
}

// ValidateTag validates a plugin tag (source or target type identifier).
// Tags are lowercase identifiers used as registry keys, cache key segments,
// and CLI flag values.
func ValidateTag(tag string) error {
	if tag == "" {
		return New(ErrCodeInvalidInput, "tag cannot be empty")
	}

	if len(tag) > 64 {
		return New(ErrCodeInvalidInput, "tag too long (max 64 characters)")
	}

	for _, r := range tag {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return New(ErrCodeInvalidInput, "tag %q contains invalid character %q", tag, r)
		}
	}

	return nil
}
