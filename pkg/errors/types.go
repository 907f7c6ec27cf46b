package errors

import "fmt"

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors, all fatal at startup
	ErrCodeConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrCodeConfigMissingKey ErrorCode = "CONFIG_MISSING_KEY"
	ErrCodeConfigUnknownKey ErrorCode = "CONFIG_UNKNOWN_KEY"

	// Feed errors, counted per feed during a sync
	ErrCodeFeedDownload  ErrorCode = "FEED_DOWNLOAD"
	ErrCodeFeedLoad      ErrorCode = "FEED_LOAD"
	ErrCodeFeedParse     ErrorCode = "FEED_PARSE"
	ErrCodeFeedStructure ErrorCode = "FEED_STRUCTURE"

	// Player errors
	ErrCodePlayerDependency ErrorCode = "PLAYER_DEPENDENCY"
	ErrCodePlayerCreate     ErrorCode = "PLAYER_CREATE"

	// OPML subscription errors
	ErrCodeSubscriptionsLoad      ErrorCode = "SUBSCRIPTIONS_LOAD"
	ErrCodeSubscriptionsParse     ErrorCode = "SUBSCRIPTIONS_PARSE"
	ErrCodeSubscriptionsStructure ErrorCode = "SUBSCRIPTIONS_STRUCTURE"

	// Store errors
	ErrCodeStoreBusy ErrorCode = "STORE_BUSY"
	ErrCodeDatabase  ErrorCode = "DATABASE"
	ErrCodeNotFound  ErrorCode = "NOT_FOUND"

	// Download errors
	ErrCodeDownload ErrorCode = "DOWNLOAD"

	ErrCodeInternal ErrorCode = "INTERNAL"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is checks if an error carries a specific code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// NotFound creates a not found error
func NotFound(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// DatabaseError creates a database error
func DatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabase, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation)
}

// ConfigError creates a configuration error with the given code
func ConfigError(code ErrorCode, key string, reason string) *AppError {
	return New(code, fmt.Sprintf("configuration error for '%s': %s", key, reason)).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

// UserMessage renders an error as a single status line for the UI footer.
func UserMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return fmt.Sprintf("Error: %s", appErr.Message)
	}
	return fmt.Sprintf("Error: %v", err)
}
