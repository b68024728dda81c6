package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"balancetracker/internal/core"
	"balancetracker/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPayeeCreateAndDuplicate(t *testing.T) {
	svc := NewPayeeService(newTestRepo(t))
	ctx := context.Background()

	payee, err := svc.Create(ctx, "  Electric Company  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if payee.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if payee.Name != "Electric Company" {
		t.Fatalf("expected trimmed name, got %q", payee.Name)
	}

	if _, err := svc.Create(ctx, "electric company"); !errors.Is(err, core.ErrDuplicatePayeeName) {
		t.Fatalf("expected ErrDuplicatePayeeName, got %v", err)
	}
}

func TestPayeeCreateValidation(t *testing.T) {
	svc := NewPayeeService(newTestRepo(t))
	if _, err := svc.Create(context.Background(), "   "); !errors.Is(err, core.ErrBlankPayeeName) {
		t.Fatalf("expected ErrBlankPayeeName, got %v", err)
	}
}

func TestPayeeFindOrCreateIdempotent(t *testing.T) {
	svc := NewPayeeService(newTestRepo(t))
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, "Acme")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	second, err := svc.FindOrCreate(ctx, "Acme")
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	third, err := svc.FindOrCreate(ctx, " acme ")
	if err != nil {
		t.Fatalf("FindOrCreate different case: %v", err)
	}
	if first.ID != second.ID || first.ID != third.ID {
		t.Fatalf("expected same payee id, got %d, %d, %d", first.ID, second.ID, third.ID)
	}
}

func TestPayeeUpdate(t *testing.T) {
	svc := NewPayeeService(newTestRepo(t))
	ctx := context.Background()

	a, err := svc.Create(ctx, "Landlord")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "Insurance Co"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Case-only rename is allowed.
	renamed, err := svc.Update(ctx, a.ID, "LANDLORD")
	if err != nil {
		t.Fatalf("case-only Update: %v", err)
	}
	if renamed.Name != "LANDLORD" {
		t.Fatalf("expected LANDLORD, got %q", renamed.Name)
	}

	// Rename onto another payee's name is a conflict.
	if _, err := svc.Update(ctx, a.ID, "insurance co"); !errors.Is(err, core.ErrDuplicatePayeeName) {
		t.Fatalf("expected ErrDuplicatePayeeName, got %v", err)
	}

	if _, err := svc.Update(ctx, 9999, "Whoever"); !errors.Is(err, core.ErrPayeeNotFound) {
		t.Fatalf("expected ErrPayeeNotFound, got %v", err)
	}
}

func TestPayeeDelete(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewPayeeService(repo)
	ctx := context.Background()

	payee, err := svc.Create(ctx, "One Off")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, payee.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, payee.ID); !errors.Is(err, core.ErrPayeeNotFound) {
		t.Fatalf("expected ErrPayeeNotFound, got %v", err)
	}
}

func TestPayeeDeleteReferencedByItems(t *testing.T) {
	repo := newTestRepo(t)
	payees := NewPayeeService(repo)
	periods := NewPaymentPeriodService(repo)
	ctx := context.Background()

	payee, err := payees.Create(ctx, "Rent")
	if err != nil {
		t.Fatalf("Create payee: %v", err)
	}
	_, err = periods.CreateWithItems(ctx, date(t, "2024-01-01"), money(t, "1000.00", "USD"),
		[]PaymentItemData{{Amount: money(t, "250.00", "USD"), PayeeID: payee.ID}})
	if err != nil {
		t.Fatalf("CreateWithItems: %v", err)
	}

	if err := payees.Delete(ctx, payee.ID); !errors.Is(err, core.ErrPayeeReferenced) {
		t.Fatalf("expected ErrPayeeReferenced, got %v", err)
	}

	// Payee and period must remain intact.
	if _, err := payees.FindByID(ctx, payee.ID); err != nil {
		t.Fatalf("payee should survive failed delete: %v", err)
	}
}

func TestPayeeSearch(t *testing.T) {
	svc := NewPayeeService(newTestRepo(t))
	ctx := context.Background()

	for _, name := range []string{"Water Works", "Electric Company", "electricity board"} {
		if _, err := svc.Create(ctx, name); err != nil {
			t.Fatalf("Create %q: %v", name, err)
		}
	}

	matches, err := svc.Search(ctx, "ELECTRIC")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Name != "Electric Company" || matches[1].Name != "electricity board" {
		t.Fatalf("expected alphabetical order, got %q, %q", matches[0].Name, matches[1].Name)
	}

	all, err := svc.Search(ctx, "   ")
	if err != nil {
		t.Fatalf("blank Search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("blank term should return all payees, got %d", len(all))
	}
}
