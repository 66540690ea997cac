// Package apierror provides the error envelopes returned by the HTTP API.
// Handlers never put storage errors or stack traces into these.
package apierror

// Code classifies a failure for POS clients. Detail stays human readable;
// clients branch on Code.
type Code string

const (
	CodeUnknownCode       Code = "unknown_code"
	CodeOutOfStock        Code = "out_of_stock"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeNoBatches         Code = "no_batches"
	CodeStockRace         Code = "stock_race"
	CodeCheckoutFailed    Code = "checkout_failed"
	CodeInvalidCart       Code = "invalid_cart"
	CodeConflict          Code = "conflict"
	CodeNotFound          Code = "not_found"
	CodeUnauthorized      Code = "unauthorized"
	CodeValidation        Code = "validation"
)

// APIError is the envelope for all 4xx/5xx responses. Retryable marks
// failures where resubmitting the same cart may succeed.
type APIError struct {
	Detail    string `json:"detail"`
	Code      Code   `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code Code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code, Retryable: code.Retryable()}
}

// Retryable is true for stock races and write conflicts: the losing
// transaction rolled back and a fresh attempt sees current stock.
func (c Code) Retryable() bool {
	return c == CodeStockRace || c == CodeConflict
}

// ValidationError carries per-field failures keyed by request namespace.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   Code              `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation error", Code: CodeValidation, Fields: fields}
}
