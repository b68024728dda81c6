package http

import (
	"net/http"
	"strings"

	"balancetracker/internal/core"
	applog "balancetracker/internal/log"
	"balancetracker/internal/metrics"
)

func (s *Server) handleCreatePayee(w http.ResponseWriter, r *http.Request) {
	var req payeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	payee, err := s.payees.Create(r.Context(), req.Name)
	metrics.IncPayeeOp(applog.OpCreate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newPayeeDTO(payee))
}

// handleListPayees serves all payees, or a case-insensitive substring
// search when a q parameter is present.
func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	var (
		payees []core.Payee
		err    error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		payees, err = s.payees.Search(r.Context(), q)
	} else {
		payees, err = s.payees.FindAll(r.Context())
	}
	metrics.IncPayeeOp(applog.OpList, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]payeeDTO, 0, len(payees))
	for _, p := range payees {
		dtos = append(dtos, newPayeeDTO(p))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (s *Server) handleGetPayee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payee id")
		return
	}

	payee, err := s.payees.FindByID(r.Context(), id)
	metrics.IncPayeeOp(applog.OpRead, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPayeeDTO(payee))
}

func (s *Server) handleUpdatePayee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payee id")
		return
	}
	var req payeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	payee, err := s.payees.Update(r.Context(), id, req.Name)
	metrics.IncPayeeOp(applog.OpUpdate, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPayeeDTO(payee))
}

func (s *Server) handleDeletePayee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payee id")
		return
	}

	err = s.payees.Delete(r.Context(), id)
	metrics.IncPayeeOp(applog.OpDelete, err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
