package salary

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Frequency selects how a net annual income is split into pay packets.
type Frequency int

const (
	Weekly Frequency = iota + 1
	Fortnightly
	Monthly
)

// ParseFrequency accepts the single-letter selectors W, F and M in any case,
// as well as the full period names.
func ParseFrequency(raw string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "W", "WEEKLY":
		return Weekly, nil
	case "F", "FORTNIGHTLY":
		return Fortnightly, nil
	case "M", "MONTHLY":
		return Monthly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
}

func (f Frequency) Valid() bool {
	return f >= Weekly && f <= Monthly
}

// Code is the single-letter selector.
func (f Frequency) Code() string {
	switch f {
	case Weekly:
		return "W"
	case Fortnightly:
		return "F"
	case Monthly:
		return "M"
	}
	return ""
}

// Unit names one pay period, as in "per week".
func (f Frequency) Unit() string {
	switch f {
	case Weekly:
		return "week"
	case Fortnightly:
		return "fortnight"
	case Monthly:
		return "month"
	}
	return ""
}

func (f Frequency) String() string {
	switch f {
	case Weekly:
		return "weekly"
	case Fortnightly:
		return "fortnightly"
	case Monthly:
		return "monthly"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrequency, int(f))
	}
	return []byte(f.Code()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// PayPacket converts a net annual income into the amount paid each period.
// No rounding is applied.
func PayPacket(netIncome decimal.Decimal, frequency Frequency) (decimal.Decimal, error) {
	daysPerYear := decimal.NewFromInt(DaysPerYear)
	switch frequency {
	case Weekly:
		return netIncome.DivRound(daysPerYear, divisionPrecision).Mul(decimal.NewFromInt(DaysPerWeek)), nil
	case Fortnightly:
		return netIncome.DivRound(daysPerYear, divisionPrecision).Mul(decimal.NewFromInt(DaysPerFortnight)), nil
	case Monthly:
		return netIncome.DivRound(decimal.NewFromInt(MonthsPerYear), divisionPrecision), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidFrequency, int(frequency))
}
