package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientStock is used when available stock cannot cover a reservation
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeUnderAllocated is used when an order line lacks full allocation coverage
	ErrCodeUnderAllocated = "ERR_UNDER_ALLOCATED"
	// ErrCodeAllocationUnsourced is used when a reservation is not backed by
	// qualifying purchase order capacity
	ErrCodeAllocationUnsourced = "ERR_ALLOCATION_UNSOURCED"
	// ErrCodeNotInShipment is used when a receipt scan does not match the shipment
	ErrCodeNotInShipment = "ERR_NOT_IN_SHIPMENT"
	// ErrCodeWrongWarehouse is used when a shipment is linked across warehouses
	ErrCodeWrongWarehouse = "ERR_WRONG_WAREHOUSE"
	// ErrCodeAlreadyLinked is used when a fulfillment already carries a shipment
	ErrCodeAlreadyLinked = "ERR_ALREADY_LINKED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeAlreadyLinked:       http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeUnderAllocated:      http.StatusUnprocessableEntity,
	ErrCodeAllocationUnsourced: http.StatusUnprocessableEntity,
	ErrCodeNotInShipment:       http.StatusUnprocessableEntity,
	ErrCodeWrongWarehouse:      http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized
// transport codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"DUPLICATE_REFERENCE":      ErrCodeAlreadyExists,
	"DUPLICATE_INVOICE_NUMBER": ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"CONCURRENT_MODIFICATION":  ErrCodeConcurrencyConflict,

	"INSUFFICIENT_STOCK":    ErrCodeInsufficientStock,
	"ORDER_UNDER_ALLOCATED": ErrCodeUnderAllocated,
	"ALLOCATION_UNSOURCED":  ErrCodeAllocationUnsourced,
	"NOT_IN_SHIPMENT":       ErrCodeNotInShipment,
	"WRONG_WAREHOUSE":       ErrCodeWrongWarehouse,
	"ALREADY_LINKED":        ErrCodeAlreadyLinked,

	// Invariant violations abort the transaction and surface as internal
	"ALLOCATION_SOURCE_MISMATCH": ErrCodeInternal,
	"INSUFFICIENT_UNITS":         ErrCodeInternal,
	"STOCK_NOT_LOADED":           ErrCodeInternal,

	"INVALID_INPUT":               ErrCodeInvalidInput,
	"INVALID_QUANTITY":            ErrCodeInvalidInput,
	"LINE_OVER_ALLOCATION":        ErrCodeInvalidInput,
	"INVALID_REFERENCE":           ErrCodeInvalidInput,
	"INVALID_NAME":                ErrCodeInvalidInput,
	"INVALID_CODE":                ErrCodeInvalidInput,
	"INVALID_PRICE":               ErrCodeInvalidInput,
	"INVALID_AMOUNT":              ErrCodeInvalidInput,
	"INVALID_DEPOSIT":             ErrCodeInvalidInput,
	"INVALID_CURRENCY":            ErrCodeInvalidInput,
	"INVALID_NUMBER":              ErrCodeInvalidInput,
	"INVALID_REASON":              ErrCodeInvalidInput,
	"INVALID_TYPE":                ErrCodeInvalidInput,
	"INVALID_DIRECTION":           ErrCodeInvalidInput,
	"INVALID_VARIANT":             ErrCodeInvalidInput,
	"INVALID_WAREHOUSE":           ErrCodeInvalidInput,
	"INVALID_DESTINATION":         ErrCodeInvalidInput,
	"INVALID_SHIPMENT":            ErrCodeInvalidInput,
	"INVALID_STOCK":               ErrCodeInvalidInput,
	"INVALID_ITEM":                ErrCodeInvalidInput,
	"INVALID_ORDER":               ErrCodeInvalidInput,
	"INVALID_ORDER_LINE":          ErrCodeInvalidInput,
	"INVALID_SOURCE":              ErrCodeInvalidInput,
	"INVALID_INVOICE":             ErrCodeInvalidInput,
	"INVALID_FULFILLMENT":         ErrCodeInvalidInput,
	"INVALID_PURCHASE_ORDER_ITEM": ErrCodeInvalidInput,
	"INVALID_GATE_MODE":           ErrCodeInvalidInput,

	"INVALID_STATE":       ErrCodeInvalidState,
	"INVALID_STATUS":      ErrCodeInvalidState,
	"ALREADY_CONFIRMED":   ErrCodeInvalidState,
	"ALREADY_ARRIVED":     ErrCodeInvalidState,
	"ALREADY_CONSUMED":    ErrCodeInvalidState,
	"ALREADY_PROCESSED":   ErrCodeInvalidState,
	"ALREADY_PUSHED":      ErrCodeInvalidState,
	"ALREADY_INVOICED":    ErrCodeInvalidState,
	"WRITTEN_OFF":         ErrCodeInvalidState,
	"RECEIPT_COMPLETED":   ErrCodeInvalidState,
	"RECEIPT_IN_PROGRESS": ErrCodeInvalidState,
	"PICK_INCOMPLETE":     ErrCodeInvalidState,
	"PRICE_FROZEN":        ErrCodeInvalidState,
	"NOT_IN_PICK":         ErrCodeInvalidState,
	"OWNED":               ErrCodeInvalidState,
	"NOT_OWNED":           ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
