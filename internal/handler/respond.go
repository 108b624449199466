package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/payment"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/pricing"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeConflict          = "conflict"
	CodeUnauthorized      = "unauthorized"
	CodeAuthFailed        = "auth_failed"
	CodeNotPayable        = "order_not_payable"
	CodeTooManyAttempts   = "too_many_attempts"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeServiceError maps err to its HTTP status. Unknown errors are logged
// and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var throttled *auth.ThrottledError
	switch {
	case isValidationError(err):
		writeErr(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, ledger.ErrNotFound):
		writeErr(w, http.StatusNotFound, CodeNotFound, "order not found")
	case errors.Is(err, service.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, ledger.ErrStatusConflict):
		writeErr(w, http.StatusConflict, CodeConflict, "order status changed, please retry")
	case errors.Is(err, auth.ErrUnauthorized):
		writeErr(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAuthFailure):
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false, "error": err.Error(), "code": CodeAuthFailed})
	case errors.As(err, &throttled):
		secs := int(math.Ceil(throttled.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"ok": false, "error": "too many attempts", "code": CodeTooManyAttempts, "retryAfter": secs,
		})
	case errors.Is(err, payment.ErrOrderNotPayable):
		writeErr(w, http.StatusUnprocessableEntity, CodeNotPayable, err.Error())
	case errors.Is(err, service.ErrPricingUnavailable):
		writeErr(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
	default:
		log.Error(op, zap.Error(err))
		writeErr(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

// isValidationError checks if the error is a known validation error
// that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidMobile) ||
		errors.Is(err, service.ErrNoteTooLong) ||
		errors.Is(err, service.ErrInvalidQty) ||
		errors.Is(err, ledger.ErrUnstorable) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, pricing.ErrUnknownOrderType) ||
		errors.Is(err, pricing.ErrInvalidDistance)
}

// money renders a whole-unit amount as a JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.Round(0).String())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
