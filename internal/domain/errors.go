package domain

import "errors"

var (
	// ErrInvalidInput marks malformed quantities, prices or missing fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks an unknown market, order or trade id.
	ErrNotFound = errors.New("not found")
	// ErrMarketNotActive is returned on submission to a paused market.
	ErrMarketNotActive = errors.New("market not active")
	// ErrOrderClosed is returned when cancelling a FILLED or CANCELLED order.
	ErrOrderClosed = errors.New("order already closed")
	// ErrInvariantViolation marks an internal defect, never a business error.
	ErrInvariantViolation = errors.New("invariant violation")
)
