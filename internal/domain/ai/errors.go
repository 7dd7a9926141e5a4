package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrBackendUnavailable indicates the analysis backend could not be reached
// after retries; callers surface it as a retryable user-facing error.
var ErrBackendUnavailable = errors.New("analysis backend unavailable")
