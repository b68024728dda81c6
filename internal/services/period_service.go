package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"balancetracker/internal/core"
	"balancetracker/internal/storage"
)

type (
	// PaymentItemData carries the input for a new payment item. The payee
	// is identified either by id (must exist) or by name (find-or-create);
	// id takes precedence when both are set.
	PaymentItemData struct {
		Amount    core.Money
		PayeeID   int64
		PayeeName string
		Notes     string
	}

	// PaymentItemUpdate carries a partial item update. An undefined
	// Amount leaves the amount unchanged; an empty payee reference leaves
	// the payee unchanged. Notes always replace wholesale and may be
	// cleared to empty.
	PaymentItemUpdate struct {
		Amount    core.Money
		PayeeID   int64
		PayeeName string
		Notes     string
	}
)

func (d PaymentItemData) validate() error {
	if !d.Amount.Defined() {
		return core.ErrUndefinedAmount
	}
	if d.PayeeID == 0 && strings.TrimSpace(d.PayeeName) == "" {
		return core.ErrMissingPayeeRef
	}
	return core.ValidateNotes(d.Notes)
}

// PaymentPeriodService manages payment periods and their items,
// including balance recalculation on every structural change.
type PaymentPeriodService struct {
	repo *storage.Repository
}

func NewPaymentPeriodService(repo *storage.Repository) *PaymentPeriodService {
	return &PaymentPeriodService{repo: repo}
}

// Create opens a new payment period without items.
func (s *PaymentPeriodService) Create(ctx context.Context, date core.Date, startingBalance core.Money) (core.PaymentPeriod, error) {
	return s.CreateWithItems(ctx, date, startingBalance, nil)
}

// CreateWithItems opens a new payment period and appends the supplied
// items in order, assigning sequential display orders starting at zero.
// Everything happens in one transaction: a partial item list is never
// persisted.
func (s *PaymentPeriodService) CreateWithItems(ctx context.Context, date core.Date, startingBalance core.Money, items []PaymentItemData) (core.PaymentPeriod, error) {
	if err := date.Validate(); err != nil {
		return core.PaymentPeriod{}, err
	}
	if !startingBalance.Defined() {
		return core.PaymentPeriod{}, core.ErrUndefinedAmount
	}
	for _, data := range items {
		if err := data.validate(); err != nil {
			return core.PaymentPeriod{}, err
		}
	}

	var period core.PaymentPeriod
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		exists, err := q.PeriodExistsByDate(ctx, date)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", core.ErrDuplicatePeriodDate, date)
		}

		now := time.Now().UTC()
		period = core.PaymentPeriod{
			PeriodDate:      date,
			StartingBalance: startingBalance,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for i, data := range items {
			item, err := buildItem(ctx, q, startingBalance.Currency, data, i)
			if err != nil {
				return err
			}
			period.Items = append(period.Items, item)
		}
		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		if err := q.InsertPeriod(ctx, &period); err != nil {
			return err
		}
		for i := range period.Items {
			period.Items[i].PeriodID = period.ID
			if err := q.InsertItem(ctx, &period.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.PaymentPeriod{}, err
	}

	slog.InfoContext(ctx, "Payment period created",
		"period_id", period.ID,
		"period_date", period.PeriodDate.String(),
		"items", len(period.Items),
		"ending_balance", period.EndingBalance.String())
	return period, nil
}

// buildItem validates the currency, resolves the payee within the
// enclosing transaction and assigns the display order.
func buildItem(ctx context.Context, q *storage.Queries, periodCurrency string, data PaymentItemData, displayOrder int) (core.PaymentItem, error) {
	if data.Amount.Currency != periodCurrency {
		return core.PaymentItem{}, fmt.Errorf("%w: item %s vs period %s",
			core.ErrCurrencyMismatch, data.Amount.Currency, periodCurrency)
	}
	payee, err := resolvePayee(ctx, q, data.PayeeID, data.PayeeName)
	if err != nil {
		return core.PaymentItem{}, err
	}
	return core.PaymentItem{
		Amount:       data.Amount,
		Payee:        payee,
		Notes:        data.Notes,
		DisplayOrder: displayOrder,
	}, nil
}

func resolvePayee(ctx context.Context, q *storage.Queries, payeeID int64, payeeName string) (core.Payee, error) {
	if payeeID != 0 {
		return q.GetPayee(ctx, payeeID)
	}
	if err := core.ValidatePayeeName(payeeName); err != nil {
		return core.Payee{}, err
	}
	return findOrCreatePayee(ctx, q, strings.TrimSpace(payeeName))
}

func (s *PaymentPeriodService) FindByID(ctx context.Context, id int64) (core.PaymentPeriod, error) {
	return s.repo.Queries().GetPeriod(ctx, id)
}

// FindByIDWithItems returns the period with its items populated in
// display order.
func (s *PaymentPeriodService) FindByIDWithItems(ctx context.Context, id int64) (core.PaymentPeriod, error) {
	q := s.repo.Queries()
	period, err := q.GetPeriod(ctx, id)
	if err != nil {
		return core.PaymentPeriod{}, err
	}
	period.Items, err = q.ListItemsForPeriod(ctx, id)
	if err != nil {
		return core.PaymentPeriod{}, err
	}
	return period, nil
}

func (s *PaymentPeriodService) FindByPeriodDate(ctx context.Context, date core.Date) (core.PaymentPeriod, error) {
	return s.repo.Queries().GetPeriodByDate(ctx, date)
}

// FindAll returns all periods ordered by period date descending.
func (s *PaymentPeriodService) FindAll(ctx context.Context) ([]core.PaymentPeriod, error) {
	return s.repo.Queries().ListPeriods(ctx)
}

// FindAllWithItems returns all periods, most recent first, each with its
// items populated in display order.
func (s *PaymentPeriodService) FindAllWithItems(ctx context.Context) ([]core.PaymentPeriod, error) {
	q := s.repo.Queries()
	periods, err := q.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	items, err := q.ListAllItems(ctx)
	if err != nil {
		return nil, err
	}
	byPeriod := make(map[int64][]core.PaymentItem, len(periods))
	for _, item := range items {
		byPeriod[item.PeriodID] = append(byPeriod[item.PeriodID], item)
	}
	for i := range periods {
		periods[i].Items = byPeriod[periods[i].ID]
	}
	return periods, nil
}

// FindByDateRange returns periods whose date falls inside the inclusive
// range, most recent first.
func (s *PaymentPeriodService) FindByDateRange(ctx context.Context, start, end core.Date) ([]core.PaymentPeriod, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}
	if start.After(end.Time) {
		return nil, fmt.Errorf("%w: %s > %s", core.ErrInvalidDateRange, start, end)
	}
	return s.repo.Queries().ListPeriodsByDateRange(ctx, start, end)
}

func (s *PaymentPeriodService) ExistsByDate(ctx context.Context, date core.Date) (bool, error) {
	return s.repo.Queries().PeriodExistsByDate(ctx, date)
}

// Update changes the period date and/or starting balance. A zero date or
// an undefined balance leaves the corresponding field unchanged. The
// ending balance is recalculated against the stored items before commit.
func (s *PaymentPeriodService) Update(ctx context.Context, id int64, date core.Date, startingBalance core.Money) (core.PaymentPeriod, error) {
	var period core.PaymentPeriod
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		period, err = q.GetPeriod(ctx, id)
		if err != nil {
			return err
		}
		if !date.IsZero() && !date.Equal(period.PeriodDate) {
			exists, err := q.PeriodExistsByDate(ctx, date)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", core.ErrDuplicatePeriodDate, date)
			}
			period.PeriodDate = date
		}
		if startingBalance.Defined() {
			period.StartingBalance = startingBalance
		}
		period.Items, err = q.ListItemsForPeriod(ctx, id)
		if err != nil {
			return err
		}
		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		period.UpdatedAt = time.Now().UTC()
		return q.UpdatePeriod(ctx, &period)
	})
	if err != nil {
		return core.PaymentPeriod{}, err
	}

	slog.InfoContext(ctx, "Payment period updated",
		"period_id", id, "period_date", period.PeriodDate.String())
	return period, nil
}

// UpdateWithItems atomically applies a new date and starting balance and
// replaces the entire item list. The replacement list must already be in
// the caller's intended final order; display orders are reassigned
// sequentially from zero. Any failure leaves the stored period and its
// original items untouched.
func (s *PaymentPeriodService) UpdateWithItems(ctx context.Context, id int64, date core.Date, startingBalance core.Money, items []PaymentItemData) (core.PaymentPeriod, error) {
	if err := date.Validate(); err != nil {
		return core.PaymentPeriod{}, err
	}
	if !startingBalance.Defined() {
		return core.PaymentPeriod{}, core.ErrUndefinedAmount
	}
	for _, data := range items {
		if err := data.validate(); err != nil {
			return core.PaymentPeriod{}, err
		}
	}

	var period core.PaymentPeriod
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		period, err = q.GetPeriod(ctx, id)
		if err != nil {
			return err
		}
		if !date.Equal(period.PeriodDate) {
			exists, err := q.PeriodExistsByDate(ctx, date)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", core.ErrDuplicatePeriodDate, date)
			}
			period.PeriodDate = date
		}
		period.StartingBalance = startingBalance

		if err := q.DeleteItemsForPeriod(ctx, id); err != nil {
			return err
		}
		period.Items = nil
		for i, data := range items {
			item, err := buildItem(ctx, q, startingBalance.Currency, data, i)
			if err != nil {
				return err
			}
			item.PeriodID = id
			if err := q.InsertItem(ctx, &item); err != nil {
				return err
			}
			period.Items = append(period.Items, item)
		}

		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		period.UpdatedAt = time.Now().UTC()
		return q.UpdatePeriod(ctx, &period)
	})
	if err != nil {
		return core.PaymentPeriod{}, err
	}

	slog.InfoContext(ctx, "Payment period replaced",
		"period_id", id,
		"period_date", period.PeriodDate.String(),
		"items", len(period.Items),
		"ending_balance", period.EndingBalance.String())
	return period, nil
}

// Delete removes the period and, through the ownership cascade, all of
// its items.
func (s *PaymentPeriodService) Delete(ctx context.Context, id int64) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		return q.DeletePeriod(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Payment period deleted", "period_id", id)
	return nil
}

// AddItem appends an item to the period, assigning the next display
// order, and recalculates the ending balance in the same transaction.
func (s *PaymentPeriodService) AddItem(ctx context.Context, periodID int64, data PaymentItemData) (core.PaymentItem, error) {
	if err := data.validate(); err != nil {
		return core.PaymentItem{}, err
	}

	var item core.PaymentItem
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		period, err := q.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		period.Items, err = q.ListItemsForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		item, err = buildItem(ctx, q, period.StartingBalance.Currency, data, period.NextDisplayOrder())
		if err != nil {
			return err
		}
		item.PeriodID = periodID
		if err := q.InsertItem(ctx, &item); err != nil {
			return err
		}
		period.Items = append(period.Items, item)
		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		period.UpdatedAt = time.Now().UTC()
		return q.UpdatePeriod(ctx, &period)
	})
	if err != nil {
		return core.PaymentItem{}, err
	}

	slog.InfoContext(ctx, "Payment item added",
		"period_id", periodID, "item_id", item.ID, "amount", item.Amount.String())
	return item, nil
}

// UpdateItem applies a partial update to an item after verifying it
// belongs to the claimed period.
func (s *PaymentPeriodService) UpdateItem(ctx context.Context, periodID, itemID int64, upd PaymentItemUpdate) (core.PaymentItem, error) {
	if err := core.ValidateNotes(upd.Notes); err != nil {
		return core.PaymentItem{}, err
	}

	var item core.PaymentItem
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		period, err := q.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		item, err = q.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.PeriodID != periodID {
			return fmt.Errorf("%w: item %d, period %d", core.ErrItemNotInPeriod, itemID, periodID)
		}

		if upd.Amount.Defined() {
			if upd.Amount.Currency != period.StartingBalance.Currency {
				return fmt.Errorf("%w: item %s vs period %s",
					core.ErrCurrencyMismatch, upd.Amount.Currency, period.StartingBalance.Currency)
			}
			item.Amount = upd.Amount
		}
		if upd.PayeeID != 0 || strings.TrimSpace(upd.PayeeName) != "" {
			item.Payee, err = resolvePayee(ctx, q, upd.PayeeID, upd.PayeeName)
			if err != nil {
				return err
			}
		}
		item.Notes = upd.Notes

		if err := q.UpdateItem(ctx, &item); err != nil {
			return err
		}

		period.Items, err = q.ListItemsForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		period.UpdatedAt = time.Now().UTC()
		return q.UpdatePeriod(ctx, &period)
	})
	if err != nil {
		return core.PaymentItem{}, err
	}

	slog.InfoContext(ctx, "Payment item updated",
		"period_id", periodID, "item_id", itemID)
	return item, nil
}

// RemoveItem detaches an item from its period and recalculates the
// ending balance in the same transaction.
func (s *PaymentPeriodService) RemoveItem(ctx context.Context, periodID, itemID int64) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		period, err := q.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		item, err := q.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.PeriodID != periodID {
			return fmt.Errorf("%w: item %d, period %d", core.ErrItemNotInPeriod, itemID, periodID)
		}
		if err := q.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		period.Items, err = q.ListItemsForPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if err := period.CalculateEndingBalance(); err != nil {
			return err
		}
		period.UpdatedAt = time.Now().UTC()
		return q.UpdatePeriod(ctx, &period)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Payment item removed",
		"period_id", periodID, "item_id", itemID)
	return nil
}
