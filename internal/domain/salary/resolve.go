package salary

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// Resolution describes how a rule set resolved one taxable income.
type Resolution struct {
	Amount    decimal.Decimal
	Matched   bool
	RuleIndex int
	Rule      ThresholdRule
}

// Match returns the first rule whose range contains taxable income.
func (s RuleSet) Match(taxableIncome decimal.Decimal) (ThresholdRule, int, bool) {
	for i, rule := range s.rules {
		if rule.Applies(taxableIncome) {
			return rule, i, true
		}
	}
	return ThresholdRule{}, -1, false
}

// ResolveDetailed evaluates the first matching rule, rounding up to a whole
// unit. An unmatched income resolves to zero. On evaluation failure the
// resolution amount is zero and the error is returned.
func (s RuleSet) ResolveDetailed(taxableIncome decimal.Decimal) (Resolution, error) {
	rule, idx, ok := s.Match(taxableIncome)
	if !ok {
		return Resolution{Amount: decimal.Zero, RuleIndex: -1}, nil
	}
	res := Resolution{Amount: decimal.Zero, Matched: true, RuleIndex: idx, Rule: rule}
	if rule.Expression == ZeroExpression {
		return res, nil
	}
	value, err := EvaluateFor(rule.Expression, taxableIncome)
	if err != nil {
		return res, err
	}
	res.Amount = value.Ceil()
	return res, nil
}

// Resolve is ResolveDetailed with evaluation failures logged and treated as zero.
func (s RuleSet) Resolve(taxableIncome decimal.Decimal, logger *slog.Logger) decimal.Decimal {
	res, err := s.ResolveDetailed(taxableIncome)
	if err != nil {
		logEvaluationFailure(logger, s, res, err)
		return decimal.Zero
	}
	return res.Amount
}

func logEvaluationFailure(logger *slog.Logger, set RuleSet, res Resolution, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("rule expression evaluation failed",
		"category", set.Category,
		"source", set.Source,
		"rule", res.RuleIndex,
		"expression", res.Rule.Expression,
		"err", err,
	)
}
