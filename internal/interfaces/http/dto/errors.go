package dto

import (
	"net/http"
	"strings"
)

// Standardized API error codes in the ERR_<NAME> form. Domain layers emit
// bare codes such as NOT_FOUND or INSUFFICIENT_STOCK; NormalizeErrorCode
// folds those that have a direct equivalent onto these.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// ErrorCodeHTTPStatus maps the standardized codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
}

// domainCodeHTTPStatus pins specific domain error codes to HTTP statuses
// where the naming-convention classifier would pick the wrong one.
var domainCodeHTTPStatus = map[string]int{
	// Identity
	"INVALID_CREDENTIALS":      http.StatusUnauthorized,
	"TOKEN_EXPIRED":            http.StatusUnauthorized,
	"TOKEN_INVALID":            http.StatusUnauthorized,
	"TOKEN_REVOKED":            http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":        http.StatusUnauthorized,
	"TOKEN_ERROR":              http.StatusUnauthorized,
	"ACCOUNT_LOCKED":           http.StatusForbidden,
	"ACCOUNT_INACTIVE":         http.StatusForbidden,
	"ACCOUNT_DEACTIVATED":      http.StatusForbidden,
	"ACCOUNT_PENDING":          http.StatusForbidden,
	"USER_DEACTIVATED":         http.StatusForbidden,
	"EMAIL_ALREADY_REGISTERED": http.StatusConflict,
	"WEAK_PASSWORD":            http.StatusUnprocessableEntity,

	// Merchant
	"MERCHANT_NOT_APPROVED":   http.StatusForbidden,
	"MERCHANT_ALREADY_LINKED": http.StatusConflict,
	"SLUG_ALREADY_TAKEN":      http.StatusConflict,

	// Orders and checkout
	"PRODUCT_NOT_AVAILABLE": http.StatusUnprocessableEntity,
	"MULTIPLE_MERCHANTS":    http.StatusUnprocessableEntity,
	"NO_ITEMS":              http.StatusUnprocessableEntity,
	"INVOICE_UNAVAILABLE":   http.StatusUnprocessableEntity,

	// Payments and payouts
	"REFUND_NOT_ALLOWED":      http.StatusUnprocessableEntity,
	"PAYMENT_PROVIDER_ERROR":  http.StatusBadGateway,
	"AMOUNT_BELOW_MINIMUM":    http.StatusUnprocessableEntity,
	"PAYOUT_SETTINGS_MISSING": http.StatusUnprocessableEntity,
	"INVALID_WEBHOOK_EVENT":   http.StatusBadRequest,

	// AI surfaces
	"AI_PROVIDER_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unmapped domain codes are classified by their naming convention;
// anything unrecognized falls back to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := domainCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := classifyDomainCode(code); ok {
		return status
	}
	return http.StatusInternalServerError
}

// classifyDomainCode derives an HTTP status from the domain error naming
// convention. Domain aggregates produce dozens of INVALID_*, *_NOT_FOUND,
// ALREADY_* and *_REQUIRED codes; enumerating each one here would just
// drift out of date.
func classifyDomainCode(code string) (int, bool) {
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound, true
	case strings.HasPrefix(code, "ALREADY_"),
		strings.HasPrefix(code, "DUPLICATE_"),
		strings.HasSuffix(code, "_EXISTS"),
		strings.HasPrefix(code, "HAS_"):
		return http.StatusConflict, true
	case strings.HasPrefix(code, "INVALID_"),
		strings.HasSuffix(code, "_REQUIRED"),
		strings.HasPrefix(code, "CANNOT_"),
		strings.HasPrefix(code, "EXCEEDS_"),
		strings.HasPrefix(code, "MAX_"),
		strings.HasSuffix(code, "_TOO_LONG"),
		strings.HasSuffix(code, "_TOO_LARGE"),
		code == "EMPTY_MESSAGE",
		code == "MESSAGE_TOO_LONG",
		code == "FILE_TOO_LARGE",
		code == "NOT_AN_IMAGE",
		code == "UNSUPPORTED_CONTENT_TYPE",
		code == "UNSUPPORTED_CURRENCY":
		return http.StatusUnprocessableEntity, true
	default:
		return 0, false
	}
}

// LegacyErrorCodeMapping folds bare domain codes that have a direct
// standardized equivalent onto the ERR_* form.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"INSUFFICIENT_BALANCE": ErrCodeInsufficientBalance,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a bare domain code to its standardized form.
// Codes already in the ERR_* form, and codes without a direct equivalent,
// pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
