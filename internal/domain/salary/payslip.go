package salary

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

type MoneyFormatter interface {
	Money(amount decimal.Decimal) string
}

type PayslipOptions struct {
	Title    string
	Employee string
	IssuedAt time.Time
}

// RenderPayslipPDF writes a one-page breakdown of the computation.
func RenderPayslipPDF(w io.Writer, c Computation, money MoneyFormatter, opts PayslipOptions) error {
	if opts.Title == "" {
		opts.Title = "Salary details"
	}
	if opts.IssuedAt.IsZero() {
		opts.IssuedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(opts.IssuedAt)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, opts.Title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	if opts.Employee != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", opts.Employee))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Issued: %s", opts.IssuedAt.Format("2006-01-02")))
	pdf.Ln(10)

	line := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(80, 8, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, money.Money(amount), "", 1, "R", false, 0, "")
	}

	line("Gross package", c.GrossSalary)
	line(fmt.Sprintf("Superannuation (%s%%)", c.SuperannuationPercentage.String()), c.Superannuation)
	pdf.Ln(3)
	line("Taxable income", c.TaxableIncome)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	line("Medicare levy", c.MedicareLevy)
	line("Budget repair levy", c.BudgetRepairLevy)
	line("Income tax", c.IncomeTax)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	line("Net income", c.NetIncome)
	line(fmt.Sprintf("Pay packet (per %s)", c.PayFrequency.Unit()), c.PayPacket)

	return pdf.Output(w)
}
