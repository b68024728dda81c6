package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func usd(t *testing.T, s string) Money {
	t.Helper()
	m, err := NewMoney(decimal.RequireFromString(s), "USD")
	if err != nil {
		t.Fatalf("NewMoney(%q): %v", s, err)
	}
	return m
}

func TestMoneyArithmetic(t *testing.T) {
	sum, err := usd(t, "100.50").Add(usd(t, "0.50"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Equal(usd(t, "101.00")) {
		t.Fatalf("Add: expected 101.00 USD, got %s", sum)
	}

	diff, err := usd(t, "1000.00").Sub(usd(t, "325.50"))
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !diff.Equal(usd(t, "674.50")) {
		t.Fatalf("Sub: expected 674.50 USD, got %s", diff)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	eur, err := NewMoney(decimal.RequireFromString("10"), "EUR")
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	if _, err := usd(t, "10").Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Add: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := usd(t, "10").Sub(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Sub: expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestNewMoneyUnknownCurrency(t *testing.T) {
	if _, err := NewMoney(decimal.New(1, 0), "XXX-NOT-A-CODE"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestMoneyEncodeRoundTrip(t *testing.T) {
	cases := []string{
		"100.50|USD",
		"0.00|EUR",
		"-12.34|GBP",
		"1000|JPY",
	}
	for _, in := range cases {
		m, err := ParseMoney(in)
		if err != nil {
			t.Fatalf("ParseMoney(%q): %v", in, err)
		}
		if got := m.Encode(); got != in {
			t.Fatalf("Encode(%q): got %q", in, got)
		}
	}
}

func TestParseMoneyInvalid(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"100.50", ErrInvalidMoney},          // missing currency field
		{"100.50|USD|extra", ErrInvalidMoney}, // wrong field count
		{"abc|USD", ErrInvalidMoney},
		{"", ErrInvalidMoney},
		{"100.50|NOPE", ErrUnknownCurrency},
	}
	for _, tc := range cases {
		if _, err := ParseMoney(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("ParseMoney(%q): expected %v, got %v", tc.in, tc.want, err)
		}
	}
}

func TestMoneyScanValue(t *testing.T) {
	var m Money
	if err := m.Scan("250.00|USD"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !m.Equal(usd(t, "250.00")) {
		t.Fatalf("Scan: got %s", m)
	}

	v, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "250.00|USD" {
		t.Fatalf("Value: got %v", v)
	}

	var undefined Money
	if v, err := undefined.Value(); err != nil || v != nil {
		t.Fatalf("undefined Value: got %v, %v", v, err)
	}
	if err := m.Scan(nil); err != nil || m.Defined() {
		t.Fatalf("Scan(nil): got %s, %v", m, err)
	}
}

func TestZero(t *testing.T) {
	z := Zero("USD")
	if !z.IsZero() || z.Currency != "USD" {
		t.Fatalf("Zero: got %s", z)
	}
	sum, err := usd(t, "42.42").Add(z)
	if err != nil || !sum.Equal(usd(t, "42.42")) {
		t.Fatalf("additive identity broken: %s, %v", sum, err)
	}
}
