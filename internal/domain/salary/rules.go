package salary

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// maxRuleLineBytes bounds a single rule row. Longer rows are skipped as malformed.
const maxRuleLineBytes = 4096

// ParseRules reads rows of the form "lower,upper,expression". Malformed rows
// are logged and skipped; blank lines are ignored.
func ParseRules(r io.Reader, category Category, source string, logger *slog.Logger) (RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		rules   []ThresholdRule
		skipped int
		lineNo  int
		readErr error
	)
	skip := func(err error) {
		skipped++
		logger.Warn("skipping rule row",
			"category", category,
			"source", source,
			"line", lineNo,
			"err", err,
		)
	}

	reader := bufio.NewReader(r)
	for readErr == nil {
		var raw string
		raw, readErr = reader.ReadString('\n')
		if raw == "" {
			continue
		}
		lineNo++
		if len(raw) > maxRuleLineBytes {
			skip(fmt.Errorf("%w: row is %d bytes, limit is %d", ErrMalformedRule, len(raw), maxRuleLineBytes))
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		rule, err := ParseRule(line)
		if err != nil {
			skip(err)
			continue
		}
		rules = append(rules, rule)
	}

	set := NewRuleSet(category, source, rules)
	set.Skipped = skipped
	if !errors.Is(readErr, io.EOF) {
		return set, fmt.Errorf("read %s rules from %s: %w", category, source, readErr)
	}
	return set, nil
}

// ParseRule parses one rule row.
func ParseRule(line string) (ThresholdRule, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return ThresholdRule{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedRule, len(fields))
	}
	lower, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return ThresholdRule{}, fmt.Errorf("%w: lower threshold %q is not an integer", ErrMalformedRule, fields[0])
	}
	upper, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return ThresholdRule{}, fmt.Errorf("%w: upper threshold %q is not an integer", ErrMalformedRule, fields[1])
	}
	expression := strings.TrimSpace(fields[2])
	if expression == "" {
		return ThresholdRule{}, fmt.Errorf("%w: empty expression", ErrMalformedRule)
	}
	return ThresholdRule{Lower: lower, Upper: upper, Expression: expression}, nil
}

// LoadRuleFile opens and parses one rule file. When the file cannot be opened
// the returned set is empty and the error wraps ErrRulesUnavailable.
func LoadRuleFile(category Category, path string, logger *slog.Logger) (RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := os.Open(path)
	if err != nil {
		logger.Warn("rule file unavailable, treating as empty",
			"category", category,
			"path", path,
			"err", err,
		)
		return NewRuleSet(category, path, nil), fmt.Errorf("%w: %s: %v", ErrRulesUnavailable, path, err)
	}
	defer file.Close()

	set, err := ParseRules(file, category, path, logger)
	if err != nil {
		logger.Warn("rule file read interrupted", "category", category, "path", path, "err", err)
	}
	return set, err
}

// RuleSource supplies a complete rule book.
type RuleSource interface {
	LoadRuleBook(ctx context.Context) (RuleBook, error)
}

// FileSource loads each category from its own file.
type FileSource struct {
	Paths  map[Category]string
	Logger *slog.Logger
}

func NewFileSource(medicarePath, budgetRepairPath, incomeTaxPath string, logger *slog.Logger) *FileSource {
	return &FileSource{
		Paths: map[Category]string{
			CategoryMedicareLevy:     medicarePath,
			CategoryBudgetRepairLevy: budgetRepairPath,
			CategoryIncomeTax:        incomeTaxPath,
		},
		Logger: logger,
	}
}

// LoadRuleBook never fails on missing or broken files; those categories load empty.
func (s *FileSource) LoadRuleBook(ctx context.Context) (RuleBook, error) {
	var book RuleBook
	for _, category := range Categories {
		if err := ctx.Err(); err != nil {
			return RuleBook{}, err
		}
		set, _ := LoadRuleFile(category, s.Paths[category], s.Logger)
		if err := book.put(set); err != nil {
			return RuleBook{}, err
		}
	}
	return book, nil
}

// Check loads every file strictly and returns the first open or read error.
func (s *FileSource) Check() (RuleBook, error) {
	var (
		book     RuleBook
		firstErr error
	)
	for _, category := range Categories {
		set, err := LoadRuleFile(category, s.Paths[category], s.Logger)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		_ = book.put(set)
	}
	return book, firstErr
}

// WatchedPaths lists the files this source reads.
func (s *FileSource) WatchedPaths() []string {
	paths := make([]string, 0, len(s.Paths))
	for _, category := range Categories {
		if path := s.Paths[category]; path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
