package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/security/middleware"
)

// SuccessResponse wraps every successful payload
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ListResponse is the envelope of paginated listings
type ListResponse struct {
	Success    bool `json:"success"`
	Data       any  `json:"data"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// statusFor maps a domain error kind onto an HTTP status
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the failure envelope. Anything that is not a
// domain error is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindFatal {
		writeJSON(w, statusFor(de.Kind), ErrorResponse{
			Success: false,
			Error:   de.Error(),
			Code:    de.Code,
			Field:   de.Field,
		})
		return
	}

	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   "internal server error",
		Code:    "Fatal",
	})
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Validation("", "request body too large")
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.Validation(typeErr.Field, typeErr.Field+" has the wrong type")
		}
		var numErr *numberError
		if errors.As(err, &numErr) {
			return domain.Validation(numErr.field, numErr.field+" must be a number")
		}
		return domain.Validation("", "invalid request body")
	}
	return nil
}

func principal(r *http.Request) domain.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

// optionalNumber decodes salary input: a JSON number, a numeric string, an empty
// string or null. Only the first two count as supplied.
type optionalNumber struct {
	value *float64
}

type numberError struct {
	field string
}

func (e *numberError) Error() string {
	return e.field + " must be a number"
}

func (n *optionalNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		n.value = nil
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &numberError{field: "salary"}
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			n.value = nil
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return &numberError{field: "salary"}
	}
	n.value = &v
	return nil
}

// Ptr returns the supplied value, or nil when the field was absent or blank
func (n optionalNumber) Ptr() *float64 {
	return n.value
}
