package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeGone represents a listing that was removed from the marketplace
	ErrorTypeGone ErrorType = "gone"
	// ErrorTypeNotFound represents a listing page that did not load as expected
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// FetchError represents a fetcher-specific error
type FetchError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth retrying on a later tick.
// Gone is terminal: the listing no longer exists on the marketplace.
func (e *FetchError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

// New creates a new FetchError
func New(errType ErrorType, source, message string, err error) *FetchError {
	return &FetchError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *FetchError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *FetchError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *FetchError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewGone creates a new gone error
func NewGone(source, link string) *FetchError {
	return New(ErrorTypeGone, source, fmt.Sprintf("listing %s is no longer available", link), nil)
}

// NewNotFound creates a new not-found error
func NewNotFound(source, link string) *FetchError {
	return New(ErrorTypeNotFound, source, fmt.Sprintf("listing page %s did not load as expected", link), nil)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *FetchError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *FetchError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsGone reports whether err is a terminal gone error.
func IsGone(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && fe.Type == ErrorTypeGone
}

// IsNotFound reports whether err is a soft not-found error.
func IsNotFound(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && fe.Type == ErrorTypeNotFound
}
