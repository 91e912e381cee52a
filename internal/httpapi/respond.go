package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pkarasev/exchange-api/internal/exchange"
)

// errorBody is the uniform error envelope: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError translates a domain error into a status code. This is
// the only place that mapping exists.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exchange.ErrAccountNotFound),
		errors.Is(err, exchange.ErrInstrumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exchange.ErrDuplicateAccount),
		errors.Is(err, exchange.ErrDuplicateInstrument),
		errors.Is(err, exchange.ErrInvalidKind),
		errors.Is(err, exchange.ErrInvalidVolume),
		errors.Is(err, exchange.ErrInvalidBalance),
		errors.Is(err, exchange.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exchange.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "Invalid date format")
	default:
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
