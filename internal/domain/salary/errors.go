package salary

import "errors"

var (
	ErrRulesUnavailable      = errors.New("rule file unavailable")
	ErrMalformedRule         = errors.New("malformed rule row")
	ErrExpressionSyntax      = errors.New("invalid rule expression")
	ErrDivisionByZero        = errors.New("division by zero in rule expression")
	ErrInvalidFrequency      = errors.New("pay frequency must be one of W, F or M")
	ErrInvalidSuperannuation = errors.New("superannuation percentage must be between 0 and 100")
	ErrInvalidAmount         = errors.New("amount is not a valid salary value")
	ErrUnknownCategory       = errors.New("unknown rule category")
)
