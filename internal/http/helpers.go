package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrCategoryNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrInvalidWindow),
		errors.Is(err, core.ErrInvalidDays),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, core.ErrInvalidInterval),
		errors.Is(err, core.ErrMissingUserID),
		errors.Is(err, core.ErrMissingCategory),
		errors.Is(err, core.ErrEmptyTitle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseWindow reads optional start/end query parameters. Both must be
// present to form a window; a lone parameter is an error.
func parseWindow(r *http.Request) (*core.Window, error) {
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end"))
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	if startStr == "" || endStr == "" {
		return nil, errors.New("start and end must be provided together")
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return nil, errors.New("invalid start date, want YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return nil, errors.New("invalid end date, want YYYY-MM-DD")
	}

	// The end day is inclusive.
	w := core.Window{Start: start, End: end.Add(24*time.Hour - time.Nanosecond)}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return n, nil
}
