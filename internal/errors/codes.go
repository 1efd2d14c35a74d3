// Package errors provides structured error handling for docrank.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Document store errors
//   - 3XX: Execution errors (deadlines, breakers)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryStore      Category = "STORE"
	CategoryExecution  Category = "EXECUTION"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the current command.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation; the caller may continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning marks degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreUnavailable = "ERR_201_STORE_UNAVAILABLE"
	ErrCodeCorpusInvalid    = "ERR_202_CORPUS_INVALID"
	ErrCodeStoreLocked      = "ERR_203_STORE_LOCKED"

	// Execution errors (300-399)
	ErrCodeTimeout     = "ERR_301_TIMEOUT"
	ErrCodeCircuitOpen = "ERR_302_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidOptions  = "ERR_401_INVALID_OPTIONS"
	ErrCodeUnknownStrategy = "ERR_402_UNKNOWN_STRATEGY"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeStrategyFailed = "ERR_502_STRATEGY_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	// "ERR_" prefix plus at least one digit.
	if len(code) < 5 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryExecution
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorpusInvalid, ErrCodeConfigInvalid:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreUnavailable, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
