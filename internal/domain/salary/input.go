package salary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxWholeDigits    = 15
	maxFractionDigits = 10
)

// plainNumber matches digits with an optional fraction. Exponents and signs
// are rejected so an amount cannot expand into millions of digits.
var plainNumber = regexp.MustCompile(`^(\d+)(?:\.(\d+))?$`)

// parsePlain parses a bounded, unsigned decimal written without exponent.
func parsePlain(s string) (decimal.Decimal, bool) {
	m := plainNumber.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	if len(strings.TrimLeft(m[1], "0")) > maxWholeDigits || len(m[2]) > maxFractionDigits {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParseAmount parses a salary typed by a person: grouping commas, spaces and
// a leading dollar sign are ignored. The amount must be positive.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.NewReplacer(",", "", " ", "", "_", "").Replace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	value, ok := parsePlain(cleaned)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, raw)
	}
	return value, nil
}

// ParsePercentage parses a superannuation percentage in the range 0..100.
func ParsePercentage(raw string) (decimal.Decimal, error) {
	value, ok := parsePlain(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%")))
	if !ok || value.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidSuperannuation, raw)
	}
	return value, nil
}
