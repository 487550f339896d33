package model

import (
	"context"
	"errors"
)

var (
	// ErrDataUnavailable means the provider fetch failed. Recoverable by skipping the symbol.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrNotFound means the provider knows nothing about the symbol or returned no bars.
	ErrNotFound = errors.New("symbol not found")
	// ErrInsufficientHistory means a series is shorter than a required window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrArithmeticFault means degenerate input such as a zero price or a flat volatility window.
	ErrArithmeticFault = errors.New("arithmetic fault")
	// ErrInvalidParameters is fatal to a request and reported before any scan work begins.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Failure kinds used in skip records and metric labels.
const (
	KindDataUnavailable = "data_unavailable"
	KindNotFound        = "not_found"
	KindArithmeticFault = "arithmetic_fault"
	KindTimeout         = "timeout"
	KindCanceled        = "canceled"
	KindUnknown         = "unknown"
)

// FailureKind maps an error to a stable label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrArithmeticFault):
		return KindArithmeticFault
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	default:
		return KindUnknown
	}
}
