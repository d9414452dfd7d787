package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeExternal    ErrorType = "external"
	ErrorTypeConsistency ErrorType = "consistency"
	ErrorTypeInternal    ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrKnowledgeBaseNotFound = NewDomainError(ErrorTypeNotFound, "knowledge base not found", nil)
	ErrDocumentNotFound      = NewDomainError(ErrorTypeNotFound, "document not found", nil)

	// Validation Errors
	ErrEmptyName        = NewDomainError(ErrorTypeValidation, "name cannot be empty", nil)
	ErrEmptyQuery       = NewDomainError(ErrorTypeValidation, "query cannot be empty", nil)
	ErrEmptyDocument    = NewDomainError(ErrorTypeValidation, "document contains no extractable text", nil)
	ErrInvalidChunking  = NewDomainError(ErrorTypeValidation, "invalid chunking parameters", nil)
	ErrUnsupportedFile  = NewDomainError(ErrorTypeValidation, "unsupported file format", nil)

	// External Provider Errors
	ErrEmbeddingFailed  = NewDomainError(ErrorTypeExternal, "embedding provider failure", nil)
	ErrGenerationFailed = NewDomainError(ErrorTypeExternal, "generation provider failure", nil)

	// Consistency Errors
	ErrIndexDrift = NewDomainError(ErrorTypeConsistency, "vector index diverged from chunk store", nil)

	// Internal Errors
	ErrPersistence = NewDomainError(ErrorTypeInternal, "durable store operation failed", nil)
	ErrInternal    = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeExternal
	}
	return false
}

// IsConsistencyError checks if an error is an index/store drift error
func IsConsistencyError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConsistency
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
