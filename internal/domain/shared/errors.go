package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// Invariant violation errors. These signal bugs rather than business
// conditions and must abort the enclosing transaction.
var (
	ErrInsufficientUnits        = NewDomainError("INSUFFICIENT_UNITS", "Fewer unconsumed units exist than the allocation invariants guarantee")
	ErrAllocationSourceMismatch = NewDomainError("ALLOCATION_SOURCE_MISMATCH", "Allocation source quantities do not cover the allocation")
)

// IsInvariantViolation reports whether err is one of the invariant
// violation errors that must never be silently corrected.
func IsInvariantViolation(err error) bool {
	de, ok := err.(*DomainError)
	if !ok {
		return false
	}
	return de.Code == ErrInsufficientUnits.Code || de.Code == ErrAllocationSourceMismatch.Code
}
