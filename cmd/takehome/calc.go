package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"takehome/internal/domain/salary"
	"takehome/internal/platform/config"
	"takehome/internal/platform/db"
	"takehome/internal/platform/display"
)

const (
	promptGross     = "Enter your salary package amount: "
	promptFrequency = "Enter your pay frequency (W for weekly, F for fortnightly, M for monthly): "
)

var (
	errInvalidSalary    = errors.New("the entered amount is not a valid salary value")
	errInvalidFrequency = errors.New("an invalid choice was selected for pay frequency")
)

type calcOptions struct {
	gross     string
	frequency string
	super     string
}

func (o *calcOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.gross, "gross", "", "Gross salary package, e.g. 65,000 (prompted when empty)")
	cmd.Flags().StringVar(&o.frequency, "frequency", "", "Pay frequency: W, F or M (prompted when empty)")
	cmd.Flags().StringVar(&o.super, "super", "", "Superannuation percentage (defaults to configuration)")
}

type calculator interface {
	Calculate(gross decimal.Decimal, frequency salary.Frequency) (salary.Computation, error)
	CalculateWithSuper(gross, superPercentage decimal.Decimal, frequency salary.Frequency) (salary.Computation, error)
}

func calcCmd(global *globalOptions) *cobra.Command {
	opts := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate take-home pay for a salary package",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, closeFn, err := newService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			comp, err := computeInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), svc, *opts)
			if err != nil {
				return err
			}
			money, err := display.New(cfg.DisplayLocale, cfg.Currency)
			if err != nil {
				return err
			}
			return money.WriteBreakdown(cmd.OutOrStdout(), comp)
		},
	}
	opts.bind(cmd)
	return cmd
}

func payslipCmd(global *globalOptions) *cobra.Command {
	opts := &calcOptions{}
	var (
		out      string
		employee string
	)
	cmd := &cobra.Command{
		Use:   "payslip",
		Short: "Write a PDF breakdown of a salary package",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, closeFn, err := newService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			comp, err := computeInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), svc, *opts)
			if err != nil {
				return err
			}
			money, err := display.New(cfg.DisplayLocale, cfg.Currency)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create payslip: %w", err)
			}
			if err := salary.RenderPayslipPDF(f, comp, money, salary.PayslipOptions{Employee: employee}); err != nil {
				_ = f.Close()
				return fmt.Errorf("render payslip: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write payslip: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Payslip written to %s\n", out)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "payslip.pdf", "Output PDF path")
	cmd.Flags().StringVar(&employee, "employee", "", "Employee name printed on the payslip")
	return cmd
}

// newService builds a salary service over the configured rule source.
func newService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*salary.Service, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		source  salary.RuleSource
		closeFn = func() {}
	)
	if cfg.UsesDatabase() {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect failed: %w", err)
		}
		closeFn = pool.Close
		source = salary.NewDBSource(salary.NewStore(pool), logger)
	} else {
		source = salary.NewFileSource(cfg.MedicareLevyRules, cfg.BudgetRepairLevyRules, cfg.IncomeTaxRules, logger)
	}
	svc, err := salary.NewService(ctx, source, cfg.SuperannuationPercentage, salary.WithLogger(logger))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

// computeInteractive prompts on in for any value not supplied as a flag.
func computeInteractive(in io.Reader, out io.Writer, svc calculator, opts calcOptions) (salary.Computation, error) {
	reader := bufio.NewReader(in)

	rawGross, err := prompt(reader, out, promptGross, opts.gross)
	if err != nil {
		return salary.Computation{}, err
	}
	gross, err := salary.ParseAmount(rawGross)
	if err != nil {
		return salary.Computation{}, errInvalidSalary
	}

	rawFrequency, err := prompt(reader, out, promptFrequency, opts.frequency)
	if err != nil {
		return salary.Computation{}, err
	}
	frequency, err := salary.ParseFrequency(rawFrequency)
	if err != nil {
		return salary.Computation{}, errInvalidFrequency
	}

	if strings.TrimSpace(opts.super) == "" {
		return svc.Calculate(gross, frequency)
	}
	superPercentage, err := salary.ParsePercentage(opts.super)
	if err != nil {
		return salary.Computation{}, err
	}
	return svc.CalculateWithSuper(gross, superPercentage, frequency)
}

func prompt(reader *bufio.Reader, out io.Writer, question, current string) (string, error) {
	if strings.TrimSpace(current) != "" {
		return current, nil
	}
	fmt.Fprint(out, question)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no input for %q", strings.TrimSuffix(question, ": "))
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
