package utils

import "fmt"

// WrapSessionError returns a wrapped upload-session error
func WrapSessionError(err error) error {
	return fmt.Errorf("upload session error: %w", err)
}

// WrapChunkError returns a wrapped chunk submission error
func WrapChunkError(err error) error {
	return fmt.Errorf("chunk error: %w", err)
}

// WrapDownloadError returns a wrapped download error
func WrapDownloadError(err error) error {
	return fmt.Errorf("download error: %w", err)
}

// WrapMetadataError returns a wrapped metadata lookup error
func WrapMetadataError(err error) error {
	return fmt.Errorf("metadata error: %w", err)
}

// WrapListError returns a wrapped list error
func WrapListError(err error) error {
	return fmt.Errorf("list error: %w", err)
}

// WrapUploadError returns a wrapped upload error
func WrapUploadError(err error) error {
	return fmt.Errorf("upload error: %w", err)
}

// WrapUpdateError returns a wrapped update error
func WrapUpdateError(err error) error {
	return fmt.Errorf("update error: %w", err)
}

// WrapDeleteError returns a wrapped delete error
func WrapDeleteError(err error) error {
	return fmt.Errorf("delete error: %w", err)
}
