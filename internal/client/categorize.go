package client

import (
	"context"
	"errors"

	"github.com/kjstillabower/wildfire-risk-console/internal/circuitbreaker"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryNetwork     ErrorCategory = "network"
	ErrorCategoryCircuitOpen ErrorCategory = "circuit_open"
	ErrorCategoryRateLimited ErrorCategory = "rate_limited"
	ErrorCategoryRejected    ErrorCategory = "service_4xx"
	ErrorCategoryUpstream5xx ErrorCategory = "service_5xx"
	ErrorCategoryParsing     ErrorCategory = "parsing"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps a Submit error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrorCategoryCircuitOpen
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrTransport) {
		return ErrorCategoryNetwork
	}
	if errors.Is(err, ErrMalformedResponse) {
		return ErrorCategoryParsing
	}

	var se *ServiceError
	if errors.As(err, &se) && se.StatusCode > 0 {
		switch {
		case se.StatusCode == 429:
			return ErrorCategoryRateLimited
		case se.StatusCode >= 500:
			return ErrorCategoryUpstream5xx
		case se.StatusCode >= 400:
			return ErrorCategoryRejected
		}
	}
	return ErrorCategoryUnknown
}

// IsServiceFailure reports whether err says the service is unhealthy (unreachable, timing
// out or answering 5xx) as opposed to rejecting this particular input. The circuit breaker
// counts only these.
func IsServiceFailure(err error) bool {
	switch CategorizeError(err) {
	case ErrorCategoryTimeout, ErrorCategoryNetwork, ErrorCategoryUpstream5xx, ErrorCategoryParsing:
		return true
	}
	return false
}
