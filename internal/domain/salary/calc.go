package salary

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculator composes superannuation and the three rule-driven deductions.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	superPercentage decimal.Decimal
	rules           RuleBook
	logger          *slog.Logger
}

func NewCalculator(superPercentage decimal.Decimal, rules RuleBook, logger *slog.Logger) (*Calculator, error) {
	if superPercentage.IsNegative() || superPercentage.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSuperannuation, superPercentage)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{superPercentage: superPercentage, rules: rules, logger: logger}, nil
}

func (c *Calculator) SuperannuationPercentage() decimal.Decimal {
	return c.superPercentage
}

func (c *Calculator) Rules() RuleBook {
	return c.rules
}

// TaxableIncome treats gross salary as taxable income plus superannuation
// paid on top of it.
func TaxableIncome(gross, superPercentage decimal.Decimal) decimal.Decimal {
	divisor := hundred.Add(superPercentage).DivRound(hundred, divisionPrecision)
	return gross.DivRound(divisor, divisionPrecision)
}

// Compute builds a complete Computation for the given gross salary.
func (c *Calculator) Compute(gross decimal.Decimal, frequency Frequency) (Computation, error) {
	if !frequency.Valid() {
		return Computation{}, fmt.Errorf("%w: %d", ErrInvalidFrequency, int(frequency))
	}

	comp := Computation{
		GrossSalary:              gross,
		SuperannuationPercentage: c.superPercentage,
		PayFrequency:             frequency,
	}
	comp.TaxableIncome = TaxableIncome(gross, c.superPercentage)
	comp.Superannuation = gross.Sub(comp.TaxableIncome)
	comp.MedicareLevy = c.resolve(c.rules.MedicareLevy, comp.TaxableIncome, &comp)
	comp.BudgetRepairLevy = c.resolve(c.rules.BudgetRepairLevy, comp.TaxableIncome, &comp)
	comp.IncomeTax = c.resolve(c.rules.IncomeTax, comp.TaxableIncome, &comp)
	comp.NetIncome = gross.
		Sub(comp.Superannuation).
		Sub(comp.MedicareLevy).
		Sub(comp.BudgetRepairLevy).
		Sub(comp.IncomeTax)
	if comp.NetIncome.IsNegative() {
		comp.Warnings = append(comp.Warnings, WarningNegativeNet)
	}

	packet, err := PayPacket(comp.NetIncome, frequency)
	if err != nil {
		return Computation{}, err
	}
	comp.PayPacket = packet
	return comp, nil
}

func (c *Calculator) resolve(set RuleSet, taxableIncome decimal.Decimal, comp *Computation) decimal.Decimal {
	if set.Len() == 0 {
		comp.Warnings = append(comp.Warnings, fmt.Sprintf("%s:%s", WarningEmptyRuleSet, set.Category))
		return decimal.Zero
	}
	res, err := set.ResolveDetailed(taxableIncome)
	if err != nil {
		logEvaluationFailure(c.logger, set, res, err)
		comp.Warnings = append(comp.Warnings, fmt.Sprintf("%s:%s", WarningEvaluationFailed, set.Category))
		return decimal.Zero
	}
	return res.Amount
}
