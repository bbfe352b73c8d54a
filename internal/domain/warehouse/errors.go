package warehouse

import "github.com/dirac/fulfillment/internal/domain/shared"

func errInvalidQuantity(message string) error {
	return shared.NewDomainError("INVALID_QUANTITY", message)
}

func errInsufficientUnits() error {
	return shared.ErrInsufficientUnits
}
