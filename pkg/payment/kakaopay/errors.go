package kakaopay

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request parameters")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrNetworkError     = errors.New("network error")
	ErrUnauthorized     = errors.New("unauthorized: invalid API key")
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// ErrTimeout means the request may or may not have reached the
	// processor; the outcome must be checked before retrying.
	ErrTimeout = errors.New("request timed out")
)
