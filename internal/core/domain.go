package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Limits for user-supplied text, shared by the services and the HTTP layer.
const (
	MaxPayeeNameLength = 200
	MaxNotesLength     = 500
)

// DateFormat is the canonical representation of a period date.
const DateFormat = "2006-01-02"

var (
	// Validation errors: rejected before any persistence attempt.
	ErrInvalidPeriodDate = errors.New("invalid period date")
	ErrUndefinedAmount   = errors.New("amount is required")
	ErrBlankPayeeName    = errors.New("payee name cannot be blank")
	ErrPayeeNameTooLong  = errors.New("payee name too long")
	ErrNotesTooLong      = errors.New("notes too long")
	ErrMissingPayeeRef   = errors.New("either payee id or payee name must be provided")
	ErrInvalidMoney      = errors.New("invalid monetary amount")
	ErrUnknownCurrency   = errors.New("unknown currency code")
	ErrInvalidDateRange  = errors.New("start date must not be after end date")

	// Not-found errors: the referenced entity does not exist.
	ErrPeriodNotFound      = errors.New("payment period not found")
	ErrPaymentItemNotFound = errors.New("payment item not found")
	ErrPayeeNotFound       = errors.New("payee not found")

	// Conflict errors: client-correctable, never retried automatically.
	ErrDuplicatePeriodDate = errors.New("payment period already exists for date")
	ErrDuplicatePayeeName  = errors.New("payee already exists with name")
	ErrPayeeReferenced     = errors.New("payee is referenced by payment items")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrItemNotInPeriod     = errors.New("payment item does not belong to payment period")
)

type (
	// Date is a day-granularity calendar date, normalized to UTC midnight.
	Date struct {
		time.Time
	}

	// Payee is a reusable named recipient of payments.
	Payee struct {
		ID        int64
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// PaymentItem is a single expense line belonging to exactly one
	// payment period.
	PaymentItem struct {
		ID           int64
		PeriodID     int64
		Amount       Money
		Payee        Payee
		Notes        string
		DisplayOrder int
	}

	// PaymentPeriod is a billing-cycle aggregate: a starting balance, an
	// ordered set of payment items and the derived ending balance.
	PaymentPeriod struct {
		ID              int64
		PeriodDate      Date
		StartingBalance Money
		EndingBalance   Money
		Items           []PaymentItem
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}
)

// NewDate creates a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidPeriodDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Format(DateFormat) }

// Equal compares dates at day granularity.
func (d Date) Equal(o Date) bool { return d.String() == o.String() }

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidPeriodDate
	}
	return nil
}

// ValidatePayeeName checks the trimmed name against the blank and length
// rules. Callers persist the trimmed form.
func ValidatePayeeName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrBlankPayeeName
	}
	if len(trimmed) > MaxPayeeNameLength {
		return ErrPayeeNameTooLong
	}
	return nil
}

// ValidateNotes checks the optional notes field against the length rule.
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// CalculateEndingBalance derives the ending balance: starting balance
// minus the sum of all item amounts. Items with an undefined amount are
// skipped; they should not occur after validation. This runs after every
// structural mutation and before every persistence commit, never lazily.
func (p *PaymentPeriod) CalculateEndingBalance() error {
	if !p.StartingBalance.Defined() {
		p.EndingBalance = Money{}
		return nil
	}
	total := p.StartingBalance
	for _, item := range p.Items {
		if !item.Amount.Defined() {
			continue
		}
		var err error
		total, err = total.Sub(item.Amount)
		if err != nil {
			return err
		}
	}
	p.EndingBalance = total
	return nil
}

// TotalPayments returns the sum of all item amounts, zero in the period
// currency when the period has no items.
func (p *PaymentPeriod) TotalPayments() (Money, error) {
	total := Zero(p.StartingBalance.Currency)
	for _, item := range p.Items {
		if !item.Amount.Defined() {
			continue
		}
		var err error
		total, err = total.Add(item.Amount)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// NextDisplayOrder returns the display order for a newly appended item:
// the maximum existing order plus one, or zero for an empty period.
func (p *PaymentPeriod) NextDisplayOrder() int {
	next := 0
	for _, item := range p.Items {
		if item.DisplayOrder >= next {
			next = item.DisplayOrder + 1
		}
	}
	return next
}
