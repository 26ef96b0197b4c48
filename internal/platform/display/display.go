// Package display renders salary computations for people to read.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"takehome/internal/domain/salary"
)

type Formatter struct {
	symbol   string
	unit     currency.Unit
	groupSep string
	decSep   string
}

func New(locale, isoCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse display locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(isoCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", isoCode, err)
	}
	printer := message.NewPrinter(tag)
	groupSep, decSep := separators(printer)
	return &Formatter{
		symbol:   strings.TrimSpace(printer.Sprint(currency.NarrowSymbol(unit))),
		unit:     unit,
		groupSep: groupSep,
		decSep:   decSep,
	}, nil
}

// separators reads the locale's grouping and decimal marks off printed
// samples. Locales that do not print ASCII digits fall back to "," and ".".
func separators(printer *message.Printer) (string, string) {
	group, ok := between(printer.Sprintf("%d", 1000), "1", "000")
	if !ok {
		group = ","
	}
	dec, ok := between(printer.Sprintf("%.1f", 0.5), "0", "5")
	if !ok || dec == "" {
		dec = "."
	}
	return group, dec
}

func between(s, prefix, suffix string) (string, bool) {
	s, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(s, suffix)
}

// Money rounds to cents for presentation only.
func (f *Formatter) Money(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	whole, cents, _ := strings.Cut(rounded.StringFixed(2), ".")
	return sign + f.symbol + groupDigits(whole, f.groupSep) + f.decSep + cents
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// PayPacket reads like "$700.00 per week".
func (f *Formatter) PayPacket(c salary.Computation) string {
	return fmt.Sprintf("%s per %s", f.Money(c.PayPacket), c.PayFrequency.Unit())
}

func (f *Formatter) Currency() string {
	return f.unit.String()
}

// WriteBreakdown prints the console report used by the calc command.
func (f *Formatter) WriteBreakdown(w io.Writer, c salary.Computation) error {
	lines := []string{
		"",
		"Calculating salary details...",
		"",
		"Gross package: " + f.Money(c.GrossSalary),
		"Superannuation: " + f.Money(c.Superannuation),
		"",
		"Taxable income: " + f.Money(c.TaxableIncome),
		"",
		"Deductions:",
		"Medicare Levy: " + f.Money(c.MedicareLevy),
		"Budget Repair Levy: " + f.Money(c.BudgetRepairLevy),
		"Income Tax: " + f.Money(c.IncomeTax),
		"",
		"Net income: " + f.Money(c.NetIncome),
		"Pay packet: " + f.PayPacket(c),
	}
	for _, warning := range c.Warnings {
		lines = append(lines, "Warning: "+warning)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
