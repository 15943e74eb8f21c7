package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies venue call failures.
type ErrorKind string

const (
	ErrKindRetryable        ErrorKind = "retryable"
	ErrKindPermanent        ErrorKind = "permanent"
	ErrKindBalanceExhausted ErrorKind = "balance_exhausted"
)

// VenueError is an error returned by a venue adapter call.
type VenueError struct {
	Venue   Venue
	Kind    ErrorKind
	Code    string // venue API error code when available
	Message string
	OrderID string
}

func (e *VenueError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s: %s (order %s, code %s)", e.Venue, e.Message, e.OrderID, e.Code)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code %s)", e.Venue, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Venue, e.Message)
}

// Known Polymarket CLOB API error codes.
const (
	ErrInvalidMinTickSize = "INVALID_ORDER_MIN_TICK_SIZE"
	ErrNotEnoughBalance   = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrMarketNotReady     = "MARKET_NOT_READY"
)

// balanceMarkers are the message fragments that identify an underfunded
// account. Any adapter error matching one of these triggers the hard
// fail-stop regardless of how the venue classified it.
var balanceMarkers = []string{
	"insufficient balance",
	"not enough balance",
	"balance / allowance",
	"balance/allowance",
}

// IsBalanceExhausted reports whether err denotes an exhausted balance.
func IsBalanceExhausted(err error) bool {
	if err == nil {
		return false
	}

	var ve *VenueError
	if errors.As(err, &ve) {
		if ve.Kind == ErrKindBalanceExhausted || ve.Code == ErrNotEnoughBalance {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range balanceMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether err is worth another attempt.
// Balance exhaustion is never retryable.
func IsRetryable(err error) bool {
	if err == nil || IsBalanceExhausted(err) {
		return false
	}

	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Kind == ErrKindRetryable
	}

	// Unclassified errors (network, parse) are treated as transient.
	return true
}
