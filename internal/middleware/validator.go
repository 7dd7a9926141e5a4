package middleware

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Upload validation utilities. Rejections here happen before any network or
// AI call is made.

// UploadKind is what the validator decided the file is.
type UploadKind string

const (
	UploadAudio UploadKind = "audio"
	UploadText  UploadKind = "text"
)

// ErrUnsupportedFormat wraps all type-validation failures so handlers can map
// them to 415.
type ErrUnsupportedFormat struct {
	Filename    string
	ContentType string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported format: %s (%s); supported: .mp3 (audio/mpeg), .txt (text/plain)",
		e.Filename, e.ContentType)
}

// ValidateUpload checks the filename extension and declared MIME type against
// the supported set and classifies the upload. Either signal is enough: a
// .mp3 with a missing content type passes, as does audio/mpeg with an odd
// extension.
func ValidateUpload(filename, contentType string) (UploadKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mt := contentType
	if mt != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mt = parsed
		}
	}

	switch {
	case ext == ".mp3" || mt == "audio/mpeg":
		return UploadAudio, nil
	case ext == ".txt" || mt == "text/plain":
		return UploadText, nil
	}
	return "", &ErrUnsupportedFormat{Filename: filename, ContentType: contentType}
}

// ValidateTextPayload rejects text uploads that are not valid UTF-8 or are
// effectively empty.
func ValidateTextPayload(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return fmt.Errorf("transcript file is empty")
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("transcript file is not valid UTF-8 text")
	}
	return nil
}

// ValidateSize enforces the configured upload cap.
func ValidateSize(size, max int64) error {
	if max > 0 && size > max {
		return fmt.Errorf("file too large: %d bytes (max %d)", size, max)
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
