// Package errors provides structured error handling for Quarry.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, extraction)
//   - 3XX: Store and indexing errors
//   - 4XX: Validation errors
//   - 5XX: Search errors
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and extraction I/O errors.
	CategoryIO Category = "IO"
	// CategoryStore indicates content store and indexing errors.
	CategoryStore Category = "STORE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategorySearch indicates search execution errors.
	CategorySearch Category = "SEARCH"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound     = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission   = "ERR_202_FILE_PERMISSION"
	ErrCodeExtractionFailed = "ERR_203_EXTRACTION_FAILED"

	// Store and indexing errors (300-399)
	ErrCodeStoreUnavailable = "ERR_301_STORE_UNAVAILABLE"
	ErrCodeStoreCorrupt     = "ERR_302_STORE_CORRUPT"
	ErrCodeRecordNotFound   = "ERR_303_RECORD_NOT_FOUND"
	ErrCodeIndexBusy        = "ERR_310_INDEX_BUSY"
	ErrCodeIndexFailed      = "ERR_311_INDEX_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidPath  = "ERR_404_INVALID_PATH"

	// Search errors (500-599)
	ErrCodeSourceUnavailable = "ERR_501_SOURCE_UNAVAILABLE"
	ErrCodeSourceTimeout     = "ERR_502_SOURCE_TIMEOUT"
	ErrCodeBothSourcesFailed = "ERR_503_BOTH_SOURCES_FAILED"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the numeric portion (e.g., "301" from "ERR_301_STORE_UNAVAILABLE")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryStore
	case '4':
		return CategoryValidation
	case '5':
		return CategorySearch
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Store corruption and dual-source failure abort the operation outright.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreUnavailable, ErrCodeStoreCorrupt, ErrCodeBothSourcesFailed:
		return SeverityFatal
	case ErrCodeExtractionFailed, ErrCodeSourceUnavailable, ErrCodeSourceTimeout:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the operation behind the code can be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeIndexBusy, ErrCodeSourceTimeout:
		return true
	default:
		return false
	}
}
