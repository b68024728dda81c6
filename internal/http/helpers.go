package http

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"balancetracker/internal/core"
	applog "balancetracker/internal/log"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Response encoding failed",
			applog.FieldError, err, applog.FieldPath, r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses: validation
// failures become 422, missing entities 404, conflicts 409, everything
// else 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidPeriodDate),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrUndefinedAmount),
		errors.Is(err, core.ErrInvalidMoney),
		errors.Is(err, core.ErrUnknownCurrency),
		errors.Is(err, core.ErrCurrencyMismatch),
		errors.Is(err, core.ErrBlankPayeeName),
		errors.Is(err, core.ErrPayeeNameTooLong),
		errors.Is(err, core.ErrNotesTooLong),
		errors.Is(err, core.ErrMissingPayeeRef):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrPeriodNotFound),
		errors.Is(err, core.ErrPaymentItemNotFound),
		errors.Is(err, core.ErrPayeeNotFound),
		errors.Is(err, core.ErrItemNotInPeriod):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicatePeriodDate),
		errors.Is(err, core.ErrDuplicatePayeeName),
		errors.Is(err, core.ErrPayeeReferenced):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
		writeError(w, r, status, "internal error")
		return
	}
	writeError(w, r, status, err.Error())
}

// decodeJSON reads and decodes a request body, rejecting unknown fields
// and oversized payloads.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func statusText(status int) string {
	return strconv.Itoa(status)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
