package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"balancetracker/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query
// methods serve reads on the pool and writes inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles all SQL against one DBTX.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// Constraint violations are reported by the driver as plain errors; the
// unique indexes and foreign keys named in the schema are the final
// arbiters for domain conflicts, so we translate them here.
func isUniqueViolation(err error, index string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), index)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Payees

const payeeColumns = "id, name, created_at, updated_at"

func (q *Queries) InsertPayee(ctx context.Context, name string, now time.Time) (core.Payee, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO payees (name, created_at, updated_at) VALUES (?, ?, ?)",
		name, now, now,
	)
	if isUniqueViolation(err, "payees.name") {
		return core.Payee{}, fmt.Errorf("%w: %s", core.ErrDuplicatePayeeName, name)
	}
	if err != nil {
		return core.Payee{}, fmt.Errorf("insert payee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Payee{}, fmt.Errorf("payee insert id: %w", err)
	}
	return core.Payee{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

func (q *Queries) GetPayee(ctx context.Context, id int64) (core.Payee, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+payeeColumns+" FROM payees WHERE id = ?", id)
	payee, err := scanPayee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payee{}, fmt.Errorf("%w: %d", core.ErrPayeeNotFound, id)
	}
	return payee, err
}

// GetPayeeByName matches case-insensitively; the name column carries
// COLLATE NOCASE.
func (q *Queries) GetPayeeByName(ctx context.Context, name string) (core.Payee, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+payeeColumns+" FROM payees WHERE name = ?", name)
	payee, err := scanPayee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payee{}, fmt.Errorf("%w: %s", core.ErrPayeeNotFound, name)
	}
	return payee, err
}

func (q *Queries) PayeeExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM payees WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("payee exists by name: %w", err)
	}
	return exists, nil
}

func (q *Queries) ListPayees(ctx context.Context) ([]core.Payee, error) {
	return q.queryPayees(ctx,
		"SELECT "+payeeColumns+" FROM payees ORDER BY name ASC")
}

func (q *Queries) SearchPayees(ctx context.Context, term string) ([]core.Payee, error) {
	return q.queryPayees(ctx,
		"SELECT "+payeeColumns+" FROM payees WHERE name LIKE '%' || ? || '%' ORDER BY name ASC",
		term)
}

func (q *Queries) UpdatePayee(ctx context.Context, id int64, name string, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE payees SET name = ?, updated_at = ? WHERE id = ?",
		name, now, id,
	)
	if isUniqueViolation(err, "payees.name") {
		return fmt.Errorf("%w: %s", core.ErrDuplicatePayeeName, name)
	}
	if err != nil {
		return fmt.Errorf("update payee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payee: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPayeeNotFound, id)
	}
	return nil
}

// DeletePayee relies on the RESTRICT foreign key: a payee still
// referenced by payment items is a conflict, not a cascade.
func (q *Queries) DeletePayee(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM payees WHERE id = ?", id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %d", core.ErrPayeeReferenced, id)
	}
	if err != nil {
		return fmt.Errorf("delete payee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payee: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPayeeNotFound, id)
	}
	return nil
}

func (q *Queries) queryPayees(ctx context.Context, query string, args ...any) ([]core.Payee, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payees: %w", err)
	}
	defer rows.Close()

	var payees []core.Payee
	for rows.Next() {
		var p core.Payee
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		payees = append(payees, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payees: %w", err)
	}
	return payees, nil
}

func scanPayee(row *sql.Row) (core.Payee, error) {
	var p core.Payee
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return core.Payee{}, err
	}
	return p, nil
}

// Payment periods

const periodColumns = "id, period_date, starting_balance, ending_balance, created_at, updated_at"

func (q *Queries) InsertPeriod(ctx context.Context, p *core.PaymentPeriod) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO payment_periods (period_date, starting_balance, ending_balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		p.PeriodDate.String(), p.StartingBalance, p.EndingBalance, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err, "payment_periods.period_date") {
		return fmt.Errorf("%w: %s", core.ErrDuplicatePeriodDate, p.PeriodDate)
	}
	if err != nil {
		return fmt.Errorf("insert payment period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment period insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (q *Queries) UpdatePeriod(ctx context.Context, p *core.PaymentPeriod) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE payment_periods SET period_date = ?, starting_balance = ?, ending_balance = ?, updated_at = ? WHERE id = ?",
		p.PeriodDate.String(), p.StartingBalance, p.EndingBalance, p.UpdatedAt, p.ID,
	)
	if isUniqueViolation(err, "payment_periods.period_date") {
		return fmt.Errorf("%w: %s", core.ErrDuplicatePeriodDate, p.PeriodDate)
	}
	if err != nil {
		return fmt.Errorf("update payment period: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment period: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPeriodNotFound, p.ID)
	}
	return nil
}

func (q *Queries) GetPeriod(ctx context.Context, id int64) (core.PaymentPeriod, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+periodColumns+" FROM payment_periods WHERE id = ?", id)
	period, err := scanPeriodRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentPeriod{}, fmt.Errorf("%w: %d", core.ErrPeriodNotFound, id)
	}
	return period, err
}

func (q *Queries) GetPeriodByDate(ctx context.Context, date core.Date) (core.PaymentPeriod, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+periodColumns+" FROM payment_periods WHERE period_date = ?", date.String())
	period, err := scanPeriodRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentPeriod{}, fmt.Errorf("%w: %s", core.ErrPeriodNotFound, date)
	}
	return period, err
}

func (q *Queries) PeriodExistsByDate(ctx context.Context, date core.Date) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM payment_periods WHERE period_date = ?)", date.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("period exists by date: %w", err)
	}
	return exists, nil
}

func (q *Queries) ListPeriods(ctx context.Context) ([]core.PaymentPeriod, error) {
	return q.queryPeriods(ctx,
		"SELECT "+periodColumns+" FROM payment_periods ORDER BY period_date DESC")
}

// ListPeriodsByDateRange is inclusive on both ends.
func (q *Queries) ListPeriodsByDateRange(ctx context.Context, start, end core.Date) ([]core.PaymentPeriod, error) {
	return q.queryPeriods(ctx,
		"SELECT "+periodColumns+" FROM payment_periods WHERE period_date >= ? AND period_date <= ? ORDER BY period_date DESC",
		start.String(), end.String())
}

// DeletePeriod removes the period; its items go with it via ON DELETE CASCADE.
func (q *Queries) DeletePeriod(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM payment_periods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete payment period: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment period: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPeriodNotFound, id)
	}
	return nil
}

func (q *Queries) queryPeriods(ctx context.Context, query string, args ...any) ([]core.PaymentPeriod, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment periods: %w", err)
	}
	defer rows.Close()

	var periods []core.PaymentPeriod
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment periods: %w", err)
	}
	return periods, nil
}

func scanPeriod(rows *sql.Rows) (core.PaymentPeriod, error) {
	var (
		p       core.PaymentPeriod
		rawDate string
	)
	if err := rows.Scan(&p.ID, &rawDate, &p.StartingBalance, &p.EndingBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return core.PaymentPeriod{}, fmt.Errorf("scan payment period: %w", err)
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.PaymentPeriod{}, fmt.Errorf("scan payment period date: %w", err)
	}
	p.PeriodDate = date
	return p, nil
}

func scanPeriodRow(row *sql.Row) (core.PaymentPeriod, error) {
	var (
		p       core.PaymentPeriod
		rawDate string
	)
	if err := row.Scan(&p.ID, &rawDate, &p.StartingBalance, &p.EndingBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return core.PaymentPeriod{}, err
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.PaymentPeriod{}, fmt.Errorf("scan payment period date: %w", err)
	}
	p.PeriodDate = date
	return p, nil
}

// Payment items

const itemSelect = `SELECT i.id, i.payment_period_id, i.amount, i.notes, i.display_order,
	p.id, p.name, p.created_at, p.updated_at
FROM payment_items i
JOIN payees p ON p.id = i.payee_id`

func (q *Queries) InsertItem(ctx context.Context, item *core.PaymentItem) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO payment_items (payment_period_id, payee_id, amount, notes, display_order) VALUES (?, ?, ?, ?, ?)",
		item.PeriodID, item.Payee.ID, item.Amount, item.Notes, item.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("insert payment item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment item insert id: %w", err)
	}
	item.ID = id
	return nil
}

func (q *Queries) UpdateItem(ctx context.Context, item *core.PaymentItem) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE payment_items SET payee_id = ?, amount = ?, notes = ?, display_order = ? WHERE id = ?",
		item.Payee.ID, item.Amount, item.Notes, item.DisplayOrder, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPaymentItemNotFound, item.ID)
	}
	return nil
}

func (q *Queries) GetItem(ctx context.Context, id int64) (core.PaymentItem, error) {
	rows, err := q.db.QueryContext(ctx, itemSelect+" WHERE i.id = ?", id)
	if err != nil {
		return core.PaymentItem{}, fmt.Errorf("get payment item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.PaymentItem{}, fmt.Errorf("get payment item: %w", err)
		}
		return core.PaymentItem{}, fmt.Errorf("%w: %d", core.ErrPaymentItemNotFound, id)
	}
	return scanItem(rows)
}

// ListItemsForPeriod returns items in display order, id as tiebreak.
func (q *Queries) ListItemsForPeriod(ctx context.Context, periodID int64) ([]core.PaymentItem, error) {
	return q.queryItems(ctx,
		itemSelect+" WHERE i.payment_period_id = ? ORDER BY i.display_order ASC, i.id ASC",
		periodID)
}

// ListAllItems returns every item grouped by period, each period's items
// in display order.
func (q *Queries) ListAllItems(ctx context.Context) ([]core.PaymentItem, error) {
	return q.queryItems(ctx,
		itemSelect+" ORDER BY i.payment_period_id ASC, i.display_order ASC, i.id ASC")
}

func (q *Queries) DeleteItem(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM payment_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete payment item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", core.ErrPaymentItemNotFound, id)
	}
	return nil
}

func (q *Queries) DeleteItemsForPeriod(ctx context.Context, periodID int64) error {
	if _, err := q.db.ExecContext(ctx,
		"DELETE FROM payment_items WHERE payment_period_id = ?", periodID); err != nil {
		return fmt.Errorf("delete payment items for period: %w", err)
	}
	return nil
}

func (q *Queries) queryItems(ctx context.Context, query string, args ...any) ([]core.PaymentItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment items: %w", err)
	}
	defer rows.Close()

	var items []core.PaymentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment items: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (core.PaymentItem, error) {
	var item core.PaymentItem
	if err := rows.Scan(
		&item.ID, &item.PeriodID, &item.Amount, &item.Notes, &item.DisplayOrder,
		&item.Payee.ID, &item.Payee.Name, &item.Payee.CreatedAt, &item.Payee.UpdatedAt,
	); err != nil {
		return core.PaymentItem{}, fmt.Errorf("scan payment item: %w", err)
	}
	return item, nil
}
