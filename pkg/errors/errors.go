package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryExtraction    ErrorCategory = "extraction"
	CategoryVision        ErrorCategory = "vision"
	CategoryMatching      ErrorCategory = "matching"
	CategoryBundle        ErrorCategory = "bundle"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeDirectoryError ErrorCode = "directory_error"

	// Extraction errors
	CodeUnreadablePDF    ErrorCode = "unreadable_pdf"
	CodeEmptyTextLayer   ErrorCode = "empty_text_layer"
	CodeOCRFailed        ErrorCode = "ocr_failed"
	CodeNoAmountFound    ErrorCode = "no_amount_found"
	CodeCacheUnavailable ErrorCode = "cache_unavailable"

	// Vision errors
	CodeVisionUnavailable ErrorCode = "vision_unavailable"
	CodeVisionThrottled   ErrorCode = "vision_throttled"
	CodeVisionBadResponse ErrorCode = "vision_bad_response"

	// Matching errors
	CodeEmptyPool       ErrorCode = "empty_pool"
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeProcessingError ErrorCode = "processing_error"

	// Bundle errors
	CodeMergeFailed   ErrorCode = "merge_failed"
	CodeArchiveFailed ErrorCode = "archive_failed"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconError is the base error type for all application errors
type ReconError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryExtraction, CategoryMatching:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryBundle, CategoryInternal:
		return 5
	case CategoryVision:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file is a valid PDF and not truncated"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ExtractionError creates an extraction-related error
func ExtractionError(code ErrorCode, document string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeUnreadablePDF:
		message = fmt.Sprintf("could not open PDF document: %s", document)
		suggestion = "verify the file is a valid PDF and not password protected"
	case CodeEmptyTextLayer:
		message = fmt.Sprintf("document has no extractable text layer: %s", document)
		suggestion = "the document is likely scanned; OCR or vision extraction will be attempted"
	case CodeOCRFailed:
		message = fmt.Sprintf("OCR failed for document: %s", document)
		suggestion = "check that tesseract and its language data are installed"
	case CodeNoAmountFound:
		message = fmt.Sprintf("no monetary amount found in document: %s", document)
		suggestion = "the document may not be an invoice or payment proof"
	case CodeCacheUnavailable:
		message = fmt.Sprintf("extraction cache unavailable for document: %s", document)
		suggestion = "check the cache file path and permissions"
	default:
		message = fmt.Sprintf("extraction error for document: %s", document)
		suggestion = "inspect the document contents and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryExtraction, code, message)
	} else {
		result = New(CategoryExtraction, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("document", document)
}

// VisionError creates a vision-API-related error
func VisionError(code ErrorCode, document string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeVisionUnavailable:
		message = fmt.Sprintf("vision service unavailable for document: %s", document)
		suggestion = "check API key configuration and network connectivity"
	case CodeVisionThrottled:
		message = fmt.Sprintf("vision service throttled request for document: %s", document)
		suggestion = "reduce request rate or retry later"
	case CodeVisionBadResponse:
		message = fmt.Sprintf("vision service returned an unparseable response for document: %s", document)
		suggestion = "the model output did not contain valid JSON; the document is skipped"
	default:
		message = fmt.Sprintf("vision error for document: %s", document)
		suggestion = "check the vision service configuration"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryVision, code, message)
	} else {
		result = New(CategoryVision, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("document", document)
}

// MatchingError creates a matching-related error
func MatchingError(code ErrorCode, operation string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeEmptyPool:
		message = fmt.Sprintf("no candidate records available during %s", operation)
		suggestion = "verify the input directories contain readable PDF documents"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount encountered during %s", operation)
		suggestion = "ensure monetary values are valid decimal numbers"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check system resources and try again"
	default:
		message = fmt.Sprintf("matching error during %s", operation)
		suggestion = "review the input data and matching configuration"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryMatching, code, message)
	} else {
		result = New(CategoryMatching, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// BundleError creates an output-bundle-related error
func BundleError(code ErrorCode, entry string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeMergeFailed:
		message = fmt.Sprintf("failed to merge PDF pages for entry: %s", entry)
		suggestion = "verify both source documents are valid PDFs"
	case CodeArchiveFailed:
		message = fmt.Sprintf("failed to write archive entry: %s", entry)
		suggestion = "check output directory permissions and available disk space"
	default:
		message = fmt.Sprintf("bundle error for entry: %s", entry)
		suggestion = "check the output configuration and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryBundle, code, message)
	} else {
		result = New(CategoryBundle, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("entry", entry)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting via flag, env var, or config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconError         `json:"errors"`
	SampleErrors []*ReconError         `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if len(errs) == 0 {
		summary.Errors = []*ReconError{}
		return summary
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	// Include sample errors (max 5)
	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// Utility functions

// IsReconError checks if an error is a ReconError
func IsReconError(err error) bool {
	_, ok := err.(*ReconError)
	return ok
}

// AsReconError extracts a ReconError from an error chain
func AsReconError(err error) (*ReconError, bool) {
	var reconErr *ReconError
	if errors.As(err, &reconErr) {
		return reconErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	if reconErr, ok := AsReconError(err); ok {
		return reconErr
	}

	return Wrap(err, category, code, message)
}
