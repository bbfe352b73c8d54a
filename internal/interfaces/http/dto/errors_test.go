package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeAlreadyLinked, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{ErrCodeUnderAllocated, http.StatusUnprocessableEntity},
		{ErrCodeAllocationUnsourced, http.StatusUnprocessableEntity},
		{ErrCodeNotInShipment, http.StatusUnprocessableEntity},
		{ErrCodeWrongWarehouse, http.StatusUnprocessableEntity},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"DUPLICATE_REFERENCE", ErrCodeAlreadyExists},
		{"CONCURRENT_MODIFICATION", ErrCodeConcurrencyConflict},
		{"INSUFFICIENT_STOCK", ErrCodeInsufficientStock},
		{"ORDER_UNDER_ALLOCATED", ErrCodeUnderAllocated},
		{"ALLOCATION_UNSOURCED", ErrCodeAllocationUnsourced},
		{"NOT_IN_SHIPMENT", ErrCodeNotInShipment},
		{"WRONG_WAREHOUSE", ErrCodeWrongWarehouse},
		{"ALREADY_LINKED", ErrCodeAlreadyLinked},
		{"INVALID_QUANTITY", ErrCodeInvalidInput},
		{"INVALID_STATUS", ErrCodeInvalidState},
		{"RECEIPT_COMPLETED", ErrCodeInvalidState},
		// Invariant violations surface as internal
		{"ALLOCATION_SOURCE_MISMATCH", ErrCodeInternal},
		{"INSUFFICIENT_UNITS", ErrCodeInternal},
		// Transport codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		// Unknown codes pass through unchanged
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainErrorCodesMapToKnownStatuses(t *testing.T) {
	// Every domain code must normalize to a transport code with an
	// explicit HTTP status, never falling through to the 500 default.
	for domainCode, transportCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[transportCode]
		assert.True(t, ok, "domain code %s maps to unmapped transport code %s", domainCode, transportCode)
	}
}
