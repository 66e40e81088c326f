package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeClassification    ErrorType = "classification"
	ErrorTypePolicyUnavailable ErrorType = "policy_unavailable"
	ErrorTypeNoCandidates      ErrorType = "no_candidates"
	ErrorTypeScoringData       ErrorType = "scoring_data"
	ErrorTypeCancelled         ErrorType = "cancelled"
	ErrorTypeInternal          ErrorType = "internal"
	ErrorTypeExternal          ErrorType = "external"
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
	// Registration / configuration errors
	ErrMalformedDescriptor = NewDomainError(ErrorTypeConfig, "malformed executor descriptor", nil)
	ErrUnknownTransport    = NewDomainError(ErrorTypeConfig, "unknown executor transport", nil)
	ErrCheckpointInvalid   = NewDomainError(ErrorTypeConfig, "ability checkpoint invalid", nil)

	// Validation errors
	ErrInvalidInput  = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyPrompt   = NewDomainError(ErrorTypeValidation, "prompt cannot be empty", nil)
	ErrInvalidPolicy = NewDomainError(ErrorTypeValidation, "invalid routing policy", nil)

	// Not found errors
	ErrExecutorNotFound = NewDomainError(ErrorTypeNotFound, "executor not found", nil)
	ErrPolicyNotFound   = NewDomainError(ErrorTypeNotFound, "routing policy not found", nil)
	ErrDecisionNotFound = NewDomainError(ErrorTypeNotFound, "decision record not found", nil)

	// Classification errors (recoverable: the router degrades to the fallback label)
	ErrClassificationTimeout   = NewDomainError(ErrorTypeClassification, "task classifier timed out", nil)
	ErrClassificationMalformed = NewDomainError(ErrorTypeClassification, "task classifier returned malformed response", nil)

	// Pool-level errors (surfaced to the caller)
	ErrPolicyUnavailable    = NewDomainError(ErrorTypePolicyUnavailable, "policy store unavailable and no cached value", nil)
	ErrNoEligibleCandidates = NewDomainError(ErrorTypeNoCandidates, "no eligible candidates after merging policy with live executors", nil)

	// Scoring errors (penalized, not fatal)
	ErrAbilityMissing = NewDomainError(ErrorTypeScoringData, "ability vector missing for model", nil)

	// Cancellation
	ErrCancelled = NewDomainError(ErrorTypeCancelled, "routing cancelled by caller", nil)

	// Internal errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal error", nil)
	ErrDecisionLogFull   = NewDomainError(ErrorTypeInternal, "decision log buffer full", nil)
	ErrOutcomeAlreadySet = NewDomainError(ErrorTypeInternal, "decision outcome already recorded", nil)

	// External errors
	ErrExecutorUnreachable = NewDomainError(ErrorTypeExternal, "executor probe failed", nil)
)

// Error type checking helper functions

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfig
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsClassificationError checks if an error is a classifier failure
func IsClassificationError(err error) bool {
	return GetErrorType(err) == ErrorTypeClassification
}

// IsPolicyUnavailableError checks if an error is a policy store outage
func IsPolicyUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypePolicyUnavailable
}

// IsNoCandidatesError checks if an error is an empty merged pool
func IsNoCandidatesError(err error) bool {
	return GetErrorType(err) == ErrorTypeNoCandidates
}

// IsCancelledError checks if an error is a caller cancellation
func IsCancelledError(err error) bool {
	return GetErrorType(err) == ErrorTypeCancelled
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

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external probe error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
