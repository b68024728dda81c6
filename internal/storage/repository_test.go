package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"balancetracker/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustMoney(t *testing.T, amount, currency string) core.Money {
	t.Helper()
	m, err := core.NewMoney(decimal.RequireFromString(amount), currency)
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	return m
}

func TestPeriodPersistenceRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	q := repo.Queries()
	ctx := context.Background()

	now := time.Now().UTC()
	period := core.PaymentPeriod{
		PeriodDate:      core.NewDate(2024, time.January, 1),
		StartingBalance: mustMoney(t, "1000.50", "USD"),
		EndingBalance:   mustMoney(t, "674.50", "USD"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := q.InsertPeriod(ctx, &period); err != nil {
		t.Fatalf("InsertPeriod: %v", err)
	}
	if period.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := q.GetPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if !got.PeriodDate.Equal(period.PeriodDate) {
		t.Errorf("period date: got %s", got.PeriodDate)
	}
	// Money survives the TEXT column with scale intact.
	if !got.StartingBalance.Equal(mustMoney(t, "1000.50", "USD")) {
		t.Errorf("starting balance: got %s", got.StartingBalance)
	}
	if got.StartingBalance.Encode() != "1000.50|USD" {
		t.Errorf("encoded form: got %q", got.StartingBalance.Encode())
	}
}

func TestPeriodDateUniqueIndex(t *testing.T) {
	repo := newTestRepo(t)
	q := repo.Queries()
	ctx := context.Background()

	now := time.Now().UTC()
	first := core.PaymentPeriod{
		PeriodDate:      core.NewDate(2024, time.February, 1),
		StartingBalance: mustMoney(t, "100.00", "USD"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := q.InsertPeriod(ctx, &first); err != nil {
		t.Fatalf("InsertPeriod: %v", err)
	}

	dup := first
	dup.ID = 0
	if err := q.InsertPeriod(ctx, &dup); !errors.Is(err, core.ErrDuplicatePeriodDate) {
		t.Fatalf("expected ErrDuplicatePeriodDate, got %v", err)
	}
}

func TestPayeeNameCollation(t *testing.T) {
	repo := newTestRepo(t)
	q := repo.Queries()
	ctx := context.Background()

	now := time.Now().UTC()
	payee, err := q.InsertPayee(ctx, "Electric Company", now)
	if err != nil {
		t.Fatalf("InsertPayee: %v", err)
	}

	// The NOCASE column makes both the unique index and lookups
	// case-insensitive.
	if _, err := q.InsertPayee(ctx, "ELECTRIC COMPANY", now); !errors.Is(err, core.ErrDuplicatePayeeName) {
		t.Fatalf("expected ErrDuplicatePayeeName, got %v", err)
	}
	found, err := q.GetPayeeByName(ctx, "electric company")
	if err != nil {
		t.Fatalf("GetPayeeByName: %v", err)
	}
	if found.ID != payee.ID {
		t.Fatalf("expected id %d, got %d", payee.ID, found.ID)
	}
}

func TestItemCascadeAndRestrict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var periodID, payeeID, itemID int64
	err := repo.InTx(ctx, func(q *Queries) error {
		payee, err := q.InsertPayee(ctx, "Landlord", now)
		if err != nil {
			return err
		}
		period := core.PaymentPeriod{
			PeriodDate:      core.NewDate(2024, time.March, 1),
			StartingBalance: mustMoney(t, "100.00", "USD"),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := q.InsertPeriod(ctx, &period); err != nil {
			return err
		}
		item := core.PaymentItem{
			PeriodID: period.ID,
			Amount:   mustMoney(t, "10.00", "USD"),
			Payee:    payee,
		}
		if err := q.InsertItem(ctx, &item); err != nil {
			return err
		}
		periodID, payeeID, itemID = period.ID, payee.ID, item.ID
		return nil
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	q := repo.Queries()

	// The referenced payee cannot be deleted.
	if err := q.DeletePayee(ctx, payeeID); !errors.Is(err, core.ErrPayeeReferenced) {
		t.Fatalf("expected ErrPayeeReferenced, got %v", err)
	}

	// Deleting the period cascades to its items and frees the payee.
	if err := q.DeletePeriod(ctx, periodID); err != nil {
		t.Fatalf("DeletePeriod: %v", err)
	}
	if _, err := q.GetItem(ctx, itemID); !errors.Is(err, core.ErrPaymentItemNotFound) {
		t.Fatalf("expected ErrPaymentItemNotFound, got %v", err)
	}
	if err := q.DeletePayee(ctx, payeeID); err != nil {
		t.Fatalf("DeletePayee after cascade: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sentinel := errors.New("boom")
	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.InsertPayee(ctx, "Ghost", now); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	exists, err := repo.Queries().PayeeExistsByName(ctx, "Ghost")
	if err != nil {
		t.Fatalf("PayeeExistsByName: %v", err)
	}
	if exists {
		t.Fatal("payee should have been rolled back")
	}
}
