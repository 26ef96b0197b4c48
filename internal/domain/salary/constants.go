package salary

const (
	// IncomePlaceholder is the token in rule expressions replaced by taxable income.
	IncomePlaceholder = "TI"
	// ZeroExpression marks a bracket that deducts nothing.
	ZeroExpression = "0"

	DaysPerYear      = 365
	DaysPerWeek      = 7
	DaysPerFortnight = 14
	MonthsPerYear    = 12

	DefaultSuperannuationPercentage = "9.5"

	// divisionPrecision matches the scale of a 128-bit decimal.
	divisionPrecision = 28

	WarningNegativeNet      = "negative_net"
	WarningEvaluationFailed = "evaluation_failed"
	WarningEmptyRuleSet     = "empty_rule_set"
)

type Category string

const (
	CategoryMedicareLevy     Category = "medicare_levy"
	CategoryBudgetRepairLevy Category = "budget_repair_levy"
	CategoryIncomeTax        Category = "income_tax"
)

var Categories = []Category{
	CategoryMedicareLevy,
	CategoryBudgetRepairLevy,
	CategoryIncomeTax,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryMedicareLevy, CategoryBudgetRepairLevy, CategoryIncomeTax:
		return true
	}
	return false
}
