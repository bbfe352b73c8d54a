package persistence

import "strings"

// ValidateSortOrder normalizes the sort direction to ASC or DESC.
// Invalid or empty input defaults to DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks the sort field against a whitelist. Anything
// not in the whitelist falls back to defaultField, which keeps user input
// out of the ORDER BY clause.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"reference":    true,
	"status":       true,
	"confirmed_at": true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"reference":  true,
}

// WarehouseSortFields contains allowed sort fields for warehouses
var WarehouseSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"priority":   true,
}

// ShipmentSortFields contains allowed sort fields for shipments
var ShipmentSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"reference":   true,
	"status":      true,
	"departed_at": true,
	"arrived_at":  true,
}
