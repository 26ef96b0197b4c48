package salary

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const incomeTaxRows = `0,18200,0
18200,37000,(TI-18200)*0.19
37000,87000,3572+((TI-37000)*0.325)
87000,180000,19822+((TI-87000)*0.37)
180000,0,54232+((TI-180000)*0.47)
`

func TestParseRulesKeepsOrder(t *testing.T) {
	set, err := ParseRules(strings.NewReader(incomeTaxRows), CategoryIncomeTax, "inline", discardLogger())
	require.NoError(t, err)
	require.Equal(t, 5, set.Len())
	assert.Equal(t, 0, set.Skipped)

	rules := set.Rules()
	assert.Equal(t, ThresholdRule{Lower: 0, Upper: 18200, Expression: "0"}, rules[0])
	assert.Equal(t, ThresholdRule{Lower: 180000, Upper: 0, Expression: "54232+((TI-180000)*0.47)"}, rules[4])
}

func TestParseRulesSkipsMalformedRows(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	input := "0,100,0\nabc,200,TI*0.1\n\n   \n200,300,TI*0.2\n300,400\n400,0,TI*0.3,extra\n"

	set, err := ParseRules(strings.NewReader(input), CategoryMedicareLevy, "inline", logger)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 3, set.Skipped)
	assert.Contains(t, logs.String(), "skipping rule row")
	assert.Contains(t, logs.String(), "line=2")
}

func TestParseRulesOneBadLine(t *testing.T) {
	input := incomeTaxRows + "not,a,rule\n"
	set, err := ParseRules(strings.NewReader(input), CategoryIncomeTax, "inline", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 5, set.Len())
}

func TestParseRulesSkipsOverlongRow(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	input := "0,100,0\n" + strings.Repeat("x", 70000) + "\n200,300,TI*0.2\n300,0,TI*0.3\n"

	set, err := ParseRules(strings.NewReader(input), CategoryIncomeTax, "inline", logger)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 1, set.Skipped)
	assert.Contains(t, logs.String(), "line=2")
	assert.Equal(t, ThresholdRule{Lower: 300, Upper: 0, Expression: "TI*0.3"}, set.Rules()[2])
}

func TestParseRulesLastRowWithoutNewline(t *testing.T) {
	set, err := ParseRules(strings.NewReader("0,100,0\n100,0,TI*0.1"), CategoryMedicareLevy, "inline", discardLogger())
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "TI*0.1", set.Rules()[1].Expression)
}

func TestParseRulesReportsReadError(t *testing.T) {
	failing := io.MultiReader(strings.NewReader("0,100,0\n"), iotest.ErrReader(errors.New("disk gone")))
	set, err := ParseRules(failing, CategoryMedicareLevy, "inline", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, 1, set.Len())
}

func TestParseRuleTrimsFields(t *testing.T) {
	rule, err := ParseRule(" 10 , 20 , TI*0.5 \r")
	require.NoError(t, err)
	assert.Equal(t, ThresholdRule{Lower: 10, Upper: 20, Expression: "TI*0.5"}, rule)

	_, err = ParseRule("10,20, ")
	assert.ErrorIs(t, err, ErrMalformedRule)
}

func TestLoadRuleFileMissing(t *testing.T) {
	set, err := LoadRuleFile(CategoryBudgetRepairLevy, filepath.Join(t.TempDir(), "missing.csv"), discardLogger())
	assert.ErrorIs(t, err, ErrRulesUnavailable)
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, CategoryBudgetRepairLevy, set.Category)
}

func TestFileSourceLoadsEmptySetForMissingFile(t *testing.T) {
	dir := t.TempDir()
	taxPath := filepath.Join(dir, "income_tax.csv")
	require.NoError(t, os.WriteFile(taxPath, []byte(incomeTaxRows), 0o644))

	source := NewFileSource(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "nope2.csv"), taxPath, discardLogger())
	book, err := source.LoadRuleBook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, book.MedicareLevy.Len())
	assert.Equal(t, 0, book.BudgetRepairLevy.Len())
	assert.Equal(t, 5, book.IncomeTax.Len())
	assert.Equal(t, CategoryMedicareLevy, book.MedicareLevy.Category)

	_, err = source.Check()
	assert.ErrorIs(t, err, ErrRulesUnavailable)
	assert.Len(t, source.WatchedPaths(), 3)
}

func TestRuleSetIsImmutable(t *testing.T) {
	input := []ThresholdRule{{Lower: 0, Upper: 10, Expression: "0"}}
	set := NewRuleSet(CategoryIncomeTax, "inline", input)
	input[0].Expression = "TI"
	rules := set.Rules()
	rules[0].Upper = 99
	assert.Equal(t, ThresholdRule{Lower: 0, Upper: 10, Expression: "0"}, set.Rules()[0])
}
