package shared

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"takehome/internal/domain/salary"
	"takehome/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  field,
		Reason: reason,
	})
}

func (v *Validator) Required(field, value, reason string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
		return false
	}
	return true
}

// Amount validates a positive salary amount; grouping commas are accepted.
func (v *Validator) Amount(field, raw string) (decimal.Decimal, bool) {
	if !v.Required(field, raw, "is required") {
		return decimal.Zero, false
	}
	value, err := salary.ParseAmount(raw)
	if err != nil {
		v.Add(field, "must be a positive number")
		return decimal.Zero, false
	}
	return value, true
}

// Percentage validates an optional superannuation percentage. An empty value
// reports ok=false without adding an issue.
func (v *Validator) Percentage(field, raw string) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	value, err := salary.ParsePercentage(raw)
	if err != nil {
		v.Add(field, "must be a number between 0 and 100")
		return decimal.Zero, false
	}
	return value, true
}

func (v *Validator) Frequency(field, raw string) (salary.Frequency, bool) {
	if !v.Required(field, raw, "is required") {
		return 0, false
	}
	freq, err := salary.ParseFrequency(raw)
	if err != nil {
		if errors.Is(err, salary.ErrInvalidFrequency) {
			v.Add(field, "must be one of W, F or M")
		}
		return 0, false
	}
	return freq, true
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
