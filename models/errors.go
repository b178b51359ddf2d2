package models

import (
	"fmt"
	"strings"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeLaunchFailed         = "LAUNCH_FAILED"
	ErrCodeBlockDetected        = "BLOCK_DETECTED"
	ErrCodeInvalidOutput        = "INVALID_OUTPUT"
	ErrCodeTimeout              = "SCRAPE_TIMEOUT"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeExtractionIncomplete = "EXTRACTION_INCOMPLETE"
	ErrCodeExtractionFailed     = "EXTRACTION_FAILED"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// Messages carried by core error results. The front door classifies core
// errors by these prefixes.
const (
	BlockMarker            = "Access Denied"
	MsgBlockDetected       = "Access Denied (Detection)"
	MsgBlockedByOrigin     = "Access Denied (blocked by Coupang)"
	MsgLaunchFailedPrefix  = "Chrome launch failed"
	MsgFallbackFetchFailed = "Fallback HTTP fetch failed"
	MsgURLRequired         = "URL required"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ClassifyCoreError maps an error string reported by the scraper core to an
// error code. A launch failure wins over the block marker because the
// combined fallback message carries both.
func ClassifyCoreError(msg string) string {
	switch {
	case strings.HasPrefix(msg, MsgLaunchFailedPrefix):
		return ErrCodeLaunchFailed
	case strings.Contains(strings.ToLower(msg), strings.ToLower(BlockMarker)):
		return ErrCodeBlockDetected
	default:
		return ErrCodeExtractionFailed
	}
}

// IsBlockTitle reports whether a title is the origin's block page title.
func IsBlockTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), BlockMarker)
}
