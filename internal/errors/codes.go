// Package errors provides structured error handling for von.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (source files, snapshot)
//   - 4XX: Validation errors (parsing, index consistency, queries)
//   - 5XX: Internal errors
//   - 6XX: Query outcomes reported per key (not found, secret)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and snapshot I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates parse and consistency errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryQuery indicates per-key query outcomes.
	CategoryQuery Category = "QUERY"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeFileTooLarge     = "ERR_203_FILE_TOO_LARGE"
	ErrCodeCorruptSnapshot  = "ERR_205_CORRUPT_SNAPSHOT"
	ErrCodeSnapshotMissing  = "ERR_206_SNAPSHOT_MISSING"
	ErrCodeSnapshotWrite    = "ERR_207_SNAPSHOT_WRITE"
	ErrCodeSnapshotLocked   = "ERR_208_SNAPSHOT_LOCKED"
	ErrCodeSourceRootAbsent = "ERR_209_SOURCE_ROOT_ABSENT"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty   = "ERR_404_QUERY_EMPTY"
	ErrCodeParseFailed  = "ERR_410_PARSE_FAILED"
	ErrCodeDuplicateKey = "ERR_411_DUPLICATE_KEY"
	ErrCodeInvalidEntry = "ERR_412_INVALID_ENTRY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIndexFailed  = "ERR_505_INDEX_FAILED"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"

	// Query outcomes (600-699)
	ErrCodeKeyNotFound  = "ERR_601_KEY_NOT_FOUND"
	ErrCodeSecretAccess = "ERR_602_SECRET_ACCESS"
	ErrCodeNoSelection  = "ERR_603_NO_SELECTION"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	case '6':
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptSnapshot, ErrCodeSnapshotWrite, ErrCodeDuplicateKey:
		return SeverityFatal
	case ErrCodeParseFailed, ErrCodeKeyNotFound, ErrCodeSecretAccess, ErrCodeNoSelection:
		return SeverityWarning
	}

	return SeverityError
}
