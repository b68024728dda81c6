package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"balancetracker/internal/core"
	"balancetracker/internal/services"
)

type moneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func newMoneyDTO(m core.Money) *moneyDTO {
	if !m.Defined() {
		return nil
	}
	return &moneyDTO{Amount: m.Amount.String(), Currency: m.Currency}
}

func (d *moneyDTO) toMoney() (core.Money, error) {
	if d == nil {
		return core.Money{}, nil
	}
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidMoney, d.Amount)
	}
	return core.NewMoney(amount, d.Currency)
}

type payeeDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPayeeDTO(p core.Payee) payeeDTO {
	return payeeDTO{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

type itemDTO struct {
	ID           int64     `json:"id"`
	Amount       *moneyDTO `json:"amount"`
	Payee        payeeDTO  `json:"payee"`
	Notes        string    `json:"notes,omitempty"`
	DisplayOrder int       `json:"display_order"`
}

func newItemDTO(item core.PaymentItem) itemDTO {
	return itemDTO{
		ID:           item.ID,
		Amount:       newMoneyDTO(item.Amount),
		Payee:        newPayeeDTO(item.Payee),
		Notes:        item.Notes,
		DisplayOrder: item.DisplayOrder,
	}
}

type periodDTO struct {
	ID              int64     `json:"id"`
	PeriodDate      string    `json:"period_date"`
	StartingBalance *moneyDTO `json:"starting_balance"`
	EndingBalance   *moneyDTO `json:"ending_balance"`
	Items           []itemDTO `json:"items"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newPeriodDTO(p core.PaymentPeriod) periodDTO {
	items := make([]itemDTO, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, newItemDTO(item))
	}
	return periodDTO{
		ID:              p.ID,
		PeriodDate:      p.PeriodDate.String(),
		StartingBalance: newMoneyDTO(p.StartingBalance),
		EndingBalance:   newMoneyDTO(p.EndingBalance),
		Items:           items,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type itemRequest struct {
	Amount    *moneyDTO `json:"amount"`
	PayeeID   int64     `json:"payee_id,omitempty"`
	PayeeName string    `json:"payee_name,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

func (req itemRequest) toData() (services.PaymentItemData, error) {
	amount, err := req.Amount.toMoney()
	if err != nil {
		return services.PaymentItemData{}, err
	}
	return services.PaymentItemData{
		Amount:    amount,
		PayeeID:   req.PayeeID,
		PayeeName: req.PayeeName,
		Notes:     req.Notes,
	}, nil
}

type createPeriodRequest struct {
	PeriodDate      string        `json:"period_date"`
	StartingBalance *moneyDTO     `json:"starting_balance"`
	Items           []itemRequest `json:"items,omitempty"`
}

// updatePeriodRequest carries a period update. An absent items field
// leaves the stored items untouched; a present one, empty included,
// replaces the whole list.
type updatePeriodRequest struct {
	PeriodDate      string         `json:"period_date,omitempty"`
	StartingBalance *moneyDTO      `json:"starting_balance,omitempty"`
	Items           *[]itemRequest `json:"items,omitempty"`
}

type updateItemRequest struct {
	Amount    *moneyDTO `json:"amount,omitempty"`
	PayeeID   int64     `json:"payee_id,omitempty"`
	PayeeName string    `json:"payee_name,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type payeeRequest struct {
	Name string `json:"name"`
}
