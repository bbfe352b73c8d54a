package valueobject

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	GBP Currency = "GBP" // British Pound (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = GBP

// IsValid reports whether the code is three uppercase letters
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// String returns the string representation of the currency code
func (c Currency) String() string {
	return string(c)
}
