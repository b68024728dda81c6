// Package core holds the balance tracker's domain model: exact-precision
// monetary values, payees, payment periods and the balance arithmetic
// that ties them together.
package core

import (
	"database/sql/driver"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// moneySeparator joins amount and currency in the persisted form,
// e.g. "100.50|USD".
const moneySeparator = "|"

// Money is an exact-precision amount tagged with an ISO-4217 currency
// code. The zero value is undefined: it carries no currency and takes no
// part in balance arithmetic. All operations return a new value.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money after checking the currency code against the
// ISO-4217 registry.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if gomoney.GetCurrency(currency) == nil {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Zero returns the additive identity in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Defined reports whether the value carries a currency.
func (m Money) Defined() bool { return m.Currency != "" }

// IsZero reports whether the amount is zero, regardless of currency.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal compares amount and currency. 100.5 and 100.50 of the same
// currency are equal.
func (m Money) Equal(n Money) bool {
	return m.Currency == n.Currency && m.Amount.Equal(n.Amount)
}

// Add returns m + n. Mixing currencies is a hard error, never a coercion.
func (m Money) Add(n Money) (Money, error) {
	if m.Currency != n.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, n.Currency)
	}
	return Money{Amount: m.Amount.Add(n.Amount), Currency: m.Currency}, nil
}

// Sub returns m - n. Mixing currencies is a hard error, never a coercion.
func (m Money) Sub(n Money) (Money, error) {
	if m.Currency != n.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, n.Currency)
	}
	return Money{Amount: m.Amount.Sub(n.Amount), Currency: m.Currency}, nil
}

// ParseMoney parses the persisted "<decimal>|<currency>" form. A wrong
// field count, a non-numeric amount or an unknown currency code is a
// hard error, never a defaulted zero.
func ParseMoney(s string) (Money, error) {
	parts := strings.Split(s, moneySeparator)
	if len(parts) != 2 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return NewMoney(amount, parts[1])
}

// Encode renders the persisted single-column form. The decimal scale of
// the amount is preserved, so "100.50|USD" round-trips byte for byte.
func (m Money) Encode() string {
	places := -m.Amount.Exponent()
	if places < 0 {
		places = 0
	}
	return m.Amount.StringFixed(places) + moneySeparator + m.Currency
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

// Value implements driver.Valuer so a Money persists as one TEXT column.
// An undefined Money persists as NULL.
func (m Money) Value() (driver.Value, error) {
	if !m.Defined() {
		return nil, nil
	}
	return m.Encode(), nil
}

// Scan implements sql.Scanner as the inverse of Value.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	return fmt.Errorf("%w: cannot scan %T", ErrInvalidMoney, src)
}
