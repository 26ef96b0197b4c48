package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takehome/internal/domain/salary"
)

func TestMoney(t *testing.T) {
	f, err := New("en-AU", "AUD")
	require.NoError(t, err)

	assert.Contains(t, f.Money(decimal.RequireFromString("700")), "700.00")
	assert.Regexp(t, `1,?234\.57$`, f.Money(decimal.RequireFromString("1234.565")))
	assert.True(t, bytes.HasPrefix([]byte(f.Money(decimal.RequireFromString("-5"))), []byte("-")))
	assert.Equal(t, "AUD", f.Currency())
}

func TestMoneyKeepsEveryDigit(t *testing.T) {
	f, err := New("en-AU", "AUD")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(f.Money(decimal.RequireFromString("12345678901234567.885")), "12,345,678,901,234,567.89"))
	assert.True(t, strings.HasSuffix(f.Money(decimal.RequireFromString("999999999999999.995")), "1,000,000,000,000,000.00"))
	assert.True(t, strings.HasSuffix(f.Money(decimal.RequireFromString("0.004")), "0.00"))
	assert.True(t, strings.HasSuffix(f.Money(decimal.RequireFromString("-1234567.5")), "1,234,567.50"))
}

func TestMoneyUsesLocaleSeparators(t *testing.T) {
	f, err := New("de-DE", "EUR")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.Money(decimal.RequireFromString("1234567.5")), "1.234.567,50"), f.Money(decimal.RequireFromString("1234567.5")))
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "0", groupDigits("0", ","))
	assert.Equal(t, "999", groupDigits("999", ","))
	assert.Equal(t, "1,000", groupDigits("1000", ","))
	assert.Equal(t, "123,456", groupDigits("123456", ","))
	assert.Equal(t, "1 234 567", groupDigits("1234567", " "))
	assert.Equal(t, "1234", groupDigits("1234", ""))
}

func TestPayPacketAndBreakdown(t *testing.T) {
	f, err := New("en-AU", "AUD")
	require.NoError(t, err)

	c := salary.Computation{
		GrossSalary:  decimal.RequireFromString("36500"),
		NetIncome:    decimal.RequireFromString("36500"),
		PayPacket:    decimal.RequireFromString("700"),
		PayFrequency: salary.Weekly,
		Warnings:     []string{salary.WarningNegativeNet},
	}
	assert.Contains(t, f.PayPacket(c), "700.00 per week")

	var buf bytes.Buffer
	require.NoError(t, f.WriteBreakdown(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "Gross package: ")
	assert.Regexp(t, `Net income: .*36,?500\.00`, out)
	assert.Contains(t, out, "Pay packet: ")
	assert.Contains(t, out, "Warning: negative_net")
}

func TestNewRejectsUnknownCurrency(t *testing.T) {
	_, err := New("en-AU", "A1")
	assert.Error(t, err)
	_, err = New("not a locale!", "AUD")
	assert.Error(t, err)
}
