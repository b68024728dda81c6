// Package services orchestrates domain operations across the payment
// period aggregate and the payee registry. Every mutating operation runs
// inside a single storage transaction: either all of it commits or none
// of it does.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"balancetracker/internal/core"
	"balancetracker/internal/storage"
)

// PayeeService manages payee reference data with validation and
// case-insensitive uniqueness checks.
type PayeeService struct {
	repo *storage.Repository
}

func NewPayeeService(repo *storage.Repository) *PayeeService {
	return &PayeeService{repo: repo}
}

// Create adds a new payee. A payee with the same name in any case is a
// conflict; the unique index remains the final arbiter under concurrency.
func (s *PayeeService) Create(ctx context.Context, name string) (core.Payee, error) {
	if err := core.ValidatePayeeName(name); err != nil {
		return core.Payee{}, err
	}
	trimmed := strings.TrimSpace(name)

	var payee core.Payee
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		exists, err := q.PayeeExistsByName(ctx, trimmed)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", core.ErrDuplicatePayeeName, trimmed)
		}
		payee, err = q.InsertPayee(ctx, trimmed, time.Now().UTC())
		return err
	})
	if err != nil {
		return core.Payee{}, err
	}

	slog.InfoContext(ctx, "Payee created", "payee_id", payee.ID, "name", payee.Name)
	return payee, nil
}

// FindOrCreate looks the name up case-insensitively and creates the
// payee when absent. Idempotent from the caller's perspective.
func (s *PayeeService) FindOrCreate(ctx context.Context, name string) (core.Payee, error) {
	if err := core.ValidatePayeeName(name); err != nil {
		return core.Payee{}, err
	}
	trimmed := strings.TrimSpace(name)

	var payee core.Payee
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		payee, err = findOrCreatePayee(ctx, q, trimmed)
		return err
	})
	return payee, err
}

// findOrCreatePayee is shared with the period service so that payee
// resolution during item authoring joins the enclosing transaction.
func findOrCreatePayee(ctx context.Context, q *storage.Queries, name string) (core.Payee, error) {
	existing, err := q.GetPayeeByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrPayeeNotFound) {
		return core.Payee{}, err
	}
	return q.InsertPayee(ctx, name, time.Now().UTC())
}

func (s *PayeeService) FindByID(ctx context.Context, id int64) (core.Payee, error) {
	return s.repo.Queries().GetPayee(ctx, id)
}

func (s *PayeeService) FindByName(ctx context.Context, name string) (core.Payee, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return core.Payee{}, fmt.Errorf("%w: blank name", core.ErrPayeeNotFound)
	}
	return s.repo.Queries().GetPayeeByName(ctx, trimmed)
}

// FindAll returns every payee ordered alphabetically.
func (s *PayeeService) FindAll(ctx context.Context) ([]core.Payee, error) {
	return s.repo.Queries().ListPayees(ctx)
}

// Search matches a case-insensitive substring of the name; a blank term
// returns all payees. Results are ordered alphabetically.
func (s *PayeeService) Search(ctx context.Context, term string) ([]core.Payee, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return s.repo.Queries().ListPayees(ctx)
	}
	return s.repo.Queries().SearchPayees(ctx, trimmed)
}

func (s *PayeeService) ExistsByName(ctx context.Context, name string) (bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false, nil
	}
	return s.repo.Queries().PayeeExistsByName(ctx, trimmed)
}

// Update renames a payee. A rename that only changes letter case skips
// the uniqueness check against other payees.
func (s *PayeeService) Update(ctx context.Context, id int64, newName string) (core.Payee, error) {
	if err := core.ValidatePayeeName(newName); err != nil {
		return core.Payee{}, err
	}
	trimmed := strings.TrimSpace(newName)

	var payee core.Payee
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetPayee(ctx, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(current.Name, trimmed) {
			exists, err := q.PayeeExistsByName(ctx, trimmed)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", core.ErrDuplicatePayeeName, trimmed)
			}
		}
		now := time.Now().UTC()
		if err := q.UpdatePayee(ctx, id, trimmed, now); err != nil {
			return err
		}
		payee = current
		payee.Name = trimmed
		payee.UpdatedAt = now
		return nil
	})
	if err != nil {
		return core.Payee{}, err
	}

	slog.InfoContext(ctx, "Payee updated", "payee_id", id, "name", trimmed)
	return payee, nil
}

// Delete removes a payee. A payee still referenced by payment items is a
// conflict surfaced from the foreign key, never a cascade.
func (s *PayeeService) Delete(ctx context.Context, id int64) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		return q.DeletePayee(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Payee deleted", "payee_id", id)
	return nil
}
