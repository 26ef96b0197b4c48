package salary

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"takehome/internal/requestctx"
)

// Recorder receives calculation and reload events, typically for metrics.
type Recorder interface {
	ComputationRecorded(c Computation)
	RuleBookLoaded(book RuleBook, err error)
}

type Service struct {
	source          RuleSource
	superPercentage decimal.Decimal
	logger          *slog.Logger
	recorder        Recorder

	calculator atomic.Pointer[Calculator]
	loadedAt   atomic.Int64
}

type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService loads the initial rule book from source.
func NewService(ctx context.Context, source RuleSource, superPercentage decimal.Decimal, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		source:          source,
		superPercentage: superPercentage,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the active rule book. Calculations already running keep
// the book they started with.
func (s *Service) Reload(ctx context.Context) error {
	book, err := s.source.LoadRuleBook(ctx)
	if s.recorder != nil {
		s.recorder.RuleBookLoaded(book, err)
	}
	if err != nil {
		return fmt.Errorf("load rule book: %w", err)
	}
	calc, err := NewCalculator(s.superPercentage, book, s.logger)
	if err != nil {
		return err
	}
	s.calculator.Store(calc)
	s.loadedAt.Store(time.Now().UnixNano())
	requestctx.Logger(ctx, s.logger).Info("rule book loaded",
		"medicareRules", book.MedicareLevy.Len(),
		"budgetRepairRules", book.BudgetRepairLevy.Len(),
		"incomeTaxRules", book.IncomeTax.Len(),
	)
	return nil
}

func (s *Service) Rules() RuleBook {
	return s.calculator.Load().Rules()
}

func (s *Service) LoadedAt() time.Time {
	return time.Unix(0, s.loadedAt.Load()).UTC()
}

func (s *Service) SuperannuationPercentage() decimal.Decimal {
	return s.superPercentage
}

// Calculate runs one computation with the configured superannuation percentage.
func (s *Service) Calculate(gross decimal.Decimal, frequency Frequency) (Computation, error) {
	return s.record(s.calculator.Load().Compute(gross, frequency))
}

// CalculateWithSuper overrides the superannuation percentage for one request.
func (s *Service) CalculateWithSuper(gross, superPercentage decimal.Decimal, frequency Frequency) (Computation, error) {
	calc, err := NewCalculator(superPercentage, s.Rules(), s.logger)
	if err != nil {
		return Computation{}, err
	}
	return s.record(calc.Compute(gross, frequency))
}

func (s *Service) record(c Computation, err error) (Computation, error) {
	if err == nil && s.recorder != nil {
		s.recorder.ComputationRecorded(c)
	}
	return c, err
}
