package utils

import (
	"strings"

	"github.com/drivegate/drivegate"
)

const (
	// MaxPathLength is the longest item path accepted by ValidatePath, in bytes.
	MaxPathLength = 1024

	// MaxFileNameLength is the longest single item name accepted by ValidateFileName, in bytes.
	MaxFileNameLength = 255
)

// characters that may not appear anywhere in an item name
const invalidNameChars = `<>:"|?*/\`

// RemoveTrailingSlash removes trailing slash, if any
func RemoveTrailingSlash(path string) string {
	return strings.TrimRight(path, "/")
}

// RemoveLeadingSlash removes leading slash, if any
func RemoveLeadingSlash(path string) string {
	return strings.TrimLeft(path, "/")
}

// EnsureLeadingSlash adds a leading slash if needed. Only ever uses / since
// it's used for web paths, never a Windows OS path.
func EnsureLeadingSlash(dir string) string {
	if strings.HasPrefix(dir, "/") {
		return dir
	}
	return "/" + dir
}

// ValidatePath ensures that an item path is non-empty, contains no parent
// traversal or control characters, does not end with a slash, and fits within
// MaxPathLength. Paths are always relative to their container root.
func ValidatePath(path string) error {
	switch {
	case strings.TrimSpace(path) == "":
		return drivegate.ErrInvalidPath
	case strings.HasSuffix(path, "/"):
		return drivegate.ErrInvalidPath
	case strings.Contains(path, ".."):
		return drivegate.ErrInvalidPath
	case len(path) > MaxPathLength:
		return drivegate.ErrInvalidPath
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7f {
			return drivegate.ErrInvalidPath
		}
	}
	return nil
}

// ValidateFileName ensures that a single item name (no path separators) is
// acceptable to the upstream service: no reserved characters or control
// characters, no trailing space or period, and within MaxFileNameLength.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > MaxFileNameLength {
		return drivegate.ErrInvalidPath
	}
	if strings.HasSuffix(name, " ") || strings.HasSuffix(name, ".") {
		return drivegate.ErrInvalidPath
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidNameChars, r) {
			return drivegate.ErrInvalidPath
		}
	}
	return nil
}

// ValidateItemID ensures an opaque upstream item identifier is present and
// within the upstream's documented bound.
func ValidateItemID(itemID string) error {
	if strings.TrimSpace(itemID) == "" || len(itemID) > 128 {
		return drivegate.ErrInvalidPath
	}
	return nil
}
