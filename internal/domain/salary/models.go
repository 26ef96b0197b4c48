package salary

import "github.com/shopspring/decimal"

// ThresholdRule is one row of a deduction table. Upper == 0 means unbounded.
type ThresholdRule struct {
	Lower      int    `json:"lowerThreshold" yaml:"lower"`
	Upper      int    `json:"upperThreshold" yaml:"upper"`
	Expression string `json:"expression" yaml:"expression"`
}

// Applies reports whether taxable income falls inside the rule's inclusive range.
func (r ThresholdRule) Applies(taxableIncome decimal.Decimal) bool {
	if taxableIncome.LessThan(decimal.NewFromInt(int64(r.Lower))) {
		return false
	}
	return r.Upper == 0 || taxableIncome.LessThanOrEqual(decimal.NewFromInt(int64(r.Upper)))
}

// RuleSet is an ordered, read-only sequence of threshold rules for one category.
type RuleSet struct {
	Category Category
	Source   string
	// Skipped counts rows dropped while loading.
	Skipped int
	rules   []ThresholdRule
}

func NewRuleSet(category Category, source string, rules []ThresholdRule) RuleSet {
	owned := make([]ThresholdRule, len(rules))
	copy(owned, rules)
	return RuleSet{Category: category, Source: source, rules: owned}
}

func (s RuleSet) Len() int {
	return len(s.rules)
}

func (s RuleSet) Rules() []ThresholdRule {
	out := make([]ThresholdRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// RuleBook groups the three rule sets a calculation needs.
type RuleBook struct {
	MedicareLevy     RuleSet
	BudgetRepairLevy RuleSet
	IncomeTax        RuleSet
}

func (b RuleBook) Set(category Category) (RuleSet, error) {
	switch category {
	case CategoryMedicareLevy:
		return b.MedicareLevy, nil
	case CategoryBudgetRepairLevy:
		return b.BudgetRepairLevy, nil
	case CategoryIncomeTax:
		return b.IncomeTax, nil
	}
	return RuleSet{}, ErrUnknownCategory
}

func (b *RuleBook) put(set RuleSet) error {
	switch set.Category {
	case CategoryMedicareLevy:
		b.MedicareLevy = set
	case CategoryBudgetRepairLevy:
		b.BudgetRepairLevy = set
	case CategoryIncomeTax:
		b.IncomeTax = set
	default:
		return ErrUnknownCategory
	}
	return nil
}

// Computation is the result of one salary calculation. All fields are set at creation.
type Computation struct {
	GrossSalary              decimal.Decimal `json:"grossSalary"`
	SuperannuationPercentage decimal.Decimal `json:"superannuationPercentage"`
	PayFrequency             Frequency       `json:"payFrequency"`
	TaxableIncome            decimal.Decimal `json:"taxableIncome"`
	Superannuation           decimal.Decimal `json:"superannuation"`
	MedicareLevy             decimal.Decimal `json:"medicareLevy"`
	BudgetRepairLevy         decimal.Decimal `json:"budgetRepairLevy"`
	IncomeTax                decimal.Decimal `json:"incomeTax"`
	NetIncome                decimal.Decimal `json:"netIncome"`
	PayPacket                decimal.Decimal `json:"payPacket"`
	Warnings                 []string        `json:"warnings,omitempty"`
}

// Deductions is the sum of the three resolved deductions.
func (c Computation) Deductions() decimal.Decimal {
	return c.MedicareLevy.Add(c.BudgetRepairLevy).Add(c.IncomeTax)
}

// Counts reports rules per category, keyed by category name.
func (b RuleBook) Counts() map[string]int {
	counts := make(map[string]int, len(Categories))
	for _, category := range Categories {
		set, _ := b.Set(category)
		counts[string(category)] = set.Len()
	}
	return counts
}
