package models

import (
	"errors"
	"fmt"
)

// Error codes used in log records and returned errors.
const (
	ErrCodeConfig            = "CONFIG_INVALID"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash      = "BROWSER_CRASH"
	ErrCodeElementStale      = "ELEMENT_STALE"
	ErrCodeExtractionHalt    = "EXTRACTION_HALT"
	ErrCodeOutput            = "OUTPUT_FAILED"
)

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

// HasCode reports whether err (or anything it wraps) is a ScrapeError with
// the given code.
func HasCode(err error, code string) bool {
	var se *ScrapeError
	for errors.As(err, &se) {
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}
