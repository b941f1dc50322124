package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
)

// VonError is the structured error type for von.
// It provides rich context for error handling, logging, and user presentation.
type VonError struct {
	// Code is the unique error code (e.g., "ERR_601_KEY_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VonError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VonError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with VonError.
func (e *VonError) Is(target error) bool {
	if t, ok := target.(*VonError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VonError) WithDetail(key, value string) *VonError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *VonError) WithSuggestion(suggestion string) *VonError {
	e.Suggestion = suggestion
	return e
}

// Detail returns the detail stored under key, or "".
func (e *VonError) Detail(key string) string {
	return e.Details[key]
}

// New creates a new VonError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *VonError {
	return &VonError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a VonError from an existing error.
// The error's message becomes the VonError message.
func Wrap(code string, err error) *VonError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrParse           = &VonError{Code: ErrCodeParseFailed}
	ErrDuplicateKey    = &VonError{Code: ErrCodeDuplicateKey}
	ErrNotFound        = &VonError{Code: ErrCodeKeyNotFound}
	ErrSecretAccess    = &VonError{Code: ErrCodeSecretAccess}
	ErrCorruptSnapshot = &VonError{Code: ErrCodeCorruptSnapshot}
	ErrSnapshotMissing = &VonError{Code: ErrCodeSnapshotMissing}
	ErrQueryEmpty      = &VonError{Code: ErrCodeQueryEmpty}
	ErrNoSelection     = &VonError{Code: ErrCodeNoSelection}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *VonError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *VonError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *VonError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *VonError {
	return New(ErrCodeInternal, message, cause)
}

// ParseError reports a malformed entry. line is 1-based; path may be empty
// when the text did not come from a file.
func ParseError(path string, line int, reason string) *VonError {
	msg := reason
	if path != "" {
		msg = fmt.Sprintf("%s:%d: %s", path, line, reason)
	} else if line > 0 {
		msg = fmt.Sprintf("line %d: %s", line, reason)
	}
	return New(ErrCodeParseFailed, msg, nil).
		WithDetail("path", path).
		WithDetail("line", strconv.Itoa(line))
}

// DuplicateKeyError reports two entries sharing a key. Both locations are
// recorded in Details as "first" and "second".
func DuplicateKeyError(key, first, second string) *VonError {
	return New(ErrCodeDuplicateKey,
		fmt.Sprintf("duplicate key %q defined at %s and %s", key, first, second), nil).
		WithDetail("key", key).
		WithDetail("first", first).
		WithDetail("second", second).
		WithSuggestion("Rename one of the entries and run 'von reindex' again")
}

// NotFoundError reports a lookup miss. suggestions, if any, become the hint.
func NotFoundError(key string, suggestions []string) *VonError {
	err := New(ErrCodeKeyNotFound, fmt.Sprintf("%s not found", key), nil).
		WithDetail("key", key)
	if len(suggestions) > 0 {
		hint := "Did you mean "
		for i, s := range suggestions {
			if i > 0 {
				hint += ", "
			}
			hint += s
		}
		err.WithSuggestion(hint + "?")
	}
	return err
}

// SecretAccessError reports an attempt to show a secret entry's body.
func SecretAccessError(key, source string) *VonError {
	return New(ErrCodeSecretAccess,
		fmt.Sprintf("problem `%s` not shown without --brave", source), nil).
		WithDetail("key", key).
		WithSuggestion("Pass --brave to show secret entries")
}

// PersistenceError reports an unreadable or corrupt snapshot.
func PersistenceError(path string, cause error) *VonError {
	msg := fmt.Sprintf("snapshot %s is unreadable", path)
	if cause != nil {
		msg = fmt.Sprintf("snapshot %s is unreadable: %v", path, cause)
	}
	return New(ErrCodeCorruptSnapshot, msg, cause).
		WithDetail("path", path).
		WithSuggestion("Run 'von reindex' to rebuild the snapshot")
}

// As returns the first VonError in err's chain.
func As(err error) (*VonError, bool) {
	var ve *VonError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if ve, ok := As(err); ok {
		return ve.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a VonError.
// Returns empty string if not a VonError.
func GetCode(err error) string {
	if ve, ok := As(err); ok {
		return ve.Code
	}
	return ""
}

// GetCategory extracts the category from a VonError.
// Returns empty string if not a VonError.
func GetCategory(err error) Category {
	if ve, ok := As(err); ok {
		return ve.Category
	}
	return ""
}

// DetailOf returns a detail of the VonError in err's chain.
func DetailOf(err error, key string) string {
	if ve, ok := As(err); ok {
		return ve.Detail(key)
	}
	return ""
}
