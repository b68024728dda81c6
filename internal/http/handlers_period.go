package http

import (
	"net/http"
	"strings"

	"balancetracker/internal/core"
	applog "balancetracker/internal/log"
	"balancetracker/internal/metrics"
	"balancetracker/internal/services"
)

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	periodDate, err := core.ParseDate(req.PeriodDate)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	startingBalance, err := req.StartingBalance.toMoney()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	items := make([]services.PaymentItemData, 0, len(req.Items))
	for _, ir := range req.Items {
		data, err := ir.toData()
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		items = append(items, data)
	}

	period, err := s.periods.CreateWithItems(r.Context(), periodDate, startingBalance, items)
	metrics.IncPeriodOp(applog.OpCreate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newPeriodDTO(period))
}

// handleListPeriods serves the period collection. Optional from/to query
// parameters narrow the result to an inclusive date range.
func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))

	var (
		periods []core.PaymentPeriod
		err     error
	)
	switch {
	case from != "" || to != "":
		var start, end core.Date
		if start, err = core.ParseDate(from); err != nil {
			writeDomainError(w, r, err)
			return
		}
		if end, err = core.ParseDate(to); err != nil {
			writeDomainError(w, r, err)
			return
		}
		periods, err = s.periods.FindByDateRange(r.Context(), start, end)
	default:
		periods, err = s.periods.FindAllWithItems(r.Context())
	}
	metrics.IncPeriodOp(applog.OpList, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]periodDTO, 0, len(periods))
	for _, p := range periods {
		dtos = append(dtos, newPeriodDTO(p))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}

	period, err := s.periods.FindByIDWithItems(r.Context(), id)
	metrics.IncPeriodOp(applog.OpRead, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPeriodDTO(period))
}

func (s *Server) handleUpdatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}
	var req updatePeriodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var periodDate core.Date
	if req.PeriodDate != "" {
		if periodDate, err = core.ParseDate(req.PeriodDate); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	startingBalance, err := req.StartingBalance.toMoney()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var period core.PaymentPeriod
	if req.Items == nil {
		period, err = s.periods.Update(r.Context(), id, periodDate, startingBalance)
	} else {
		items := make([]services.PaymentItemData, 0, len(*req.Items))
		for _, ir := range *req.Items {
			data, convErr := ir.toData()
			if convErr != nil {
				writeDomainError(w, r, convErr)
				return
			}
			items = append(items, data)
		}
		period, err = s.periods.UpdateWithItems(r.Context(), id, periodDate, startingBalance, items)
	}
	metrics.IncPeriodOp(applog.OpUpdate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPeriodDTO(period))
}

func (s *Server) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}

	err = s.periods.Delete(r.Context(), id)
	metrics.IncPeriodOp(applog.OpDelete, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	periodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	data, err := req.toData()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	item, err := s.periods.AddItem(r.Context(), periodID, data)
	metrics.IncItemOp(applog.OpCreate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newItemDTO(item))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	periodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid item id")
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := req.Amount.toMoney()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	item, err := s.periods.UpdateItem(r.Context(), periodID, itemID, services.PaymentItemUpdate{
		Amount:    amount,
		PayeeID:   req.PayeeID,
		PayeeName: req.PayeeName,
		Notes:     req.Notes,
	})
	metrics.IncItemOp(applog.OpUpdate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newItemDTO(item))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	periodID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid period id")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid item id")
		return
	}

	err = s.periods.RemoveItem(r.Context(), periodID, itemID)
	metrics.IncItemOp(applog.OpDelete, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
