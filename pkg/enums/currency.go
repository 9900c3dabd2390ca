package enums

import (
	"fmt"
	"strings"
)

// Currency represents supported monetary denominations for checkout.
type Currency string

const (
	CurrencyPKR Currency = "PKR"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyPKR,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// Lower returns the lowercase code payment APIs expect.
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
