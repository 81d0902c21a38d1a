package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// decodeAndValidate decodes the body into req and runs its struct tags.
func decodeAndValidate(r *http.Request, req any) error {
	if err := decodeJSON(r, req); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}
	return dto.Validate(req)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"code":"INTERNAL","message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrCreditExceeded),
		errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrDirectPaidNotAllowed),
		errors.Is(err, apperrors.ErrTerminalState),
		errors.Is(err, apperrors.ErrAlreadyRejected),
		errors.Is(err, apperrors.ErrAlreadyExists),
		errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrAmountMismatch),
		errors.Is(err, apperrors.ErrNoOutstandingDebt),
		errors.Is(err, apperrors.ErrAmountExceedsDebt),
		errors.Is(err, apperrors.ErrUnknownOrClosedLoan),
		errors.Is(err, apperrors.ErrAllocationExceedsOutstanding),
		errors.Is(err, apperrors.ErrInvalidArgument),
		errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	detail := dto.ErrorDetail{Code: apperrors.Code(err), Message: err.Error()}

	if status == http.StatusInternalServerError {
		slog.Default().Error("Request failed with internal error", "error", err, "code", detail.Code)
		detail.Message = "An unexpected error occurred."
	}

	var validationError *apperrors.ValidationError
	if errors.As(err, &validationError) {
		detail.Message, detail.Field = validationError.Message, validationError.Field
	}

	var violations *apperrors.AllocationViolations
	if errors.As(err, &violations) {
		for _, v := range violations.Violations {
			detail.Details = append(detail.Details, v.Error())
		}
	}

	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

func idFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

// logLevelFor keeps expected client errors out of the error log.
func logLevelFor(err error) slog.Level {
	if statusFor(err) >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}
