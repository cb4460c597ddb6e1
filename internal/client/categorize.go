package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

// Error category constants used as metric labels (toolErrorsTotal) and the log "category" field.
const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey    ErrorCategory = "invalid_api_key"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream4xx      ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx      ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing          ErrorCategory = "parsing"
	ErrorCategoryInvalidArguments ErrorCategory = "invalid_arguments"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// ErrInvalidArguments marks tool arguments that could not be decoded.
var ErrInvalidArguments = errors.New("invalid arguments")

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		switch {
		case upstream.StatusCode == http.StatusUnauthorized:
			return ErrorCategoryInvalidAPIKey
		case upstream.StatusCode == http.StatusTooManyRequests:
			return ErrorCategoryRateLimited
		case upstream.StatusCode >= 500:
			return ErrorCategoryUpstream5xx
		default:
			return ErrorCategoryUpstream4xx
		}
	}

	if errors.Is(err, ErrInvalidAPIKey) {
		return ErrorCategoryInvalidAPIKey
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorCategoryRateLimited
	}
	if errors.Is(err, ErrUpstreamFailure) {
		return ErrorCategoryUpstream5xx
	}
	if errors.Is(err, ErrInvalidJSON) {
		return ErrorCategoryParsing
	}
	if errors.Is(err, ErrInvalidArguments) {
		return ErrorCategoryInvalidArguments
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "no such host") {
		return ErrorCategoryNetwork
	}
	if strings.Contains(errStr, "parse") || strings.Contains(errStr, "unmarshal") {
		return ErrorCategoryParsing
	}

	return ErrorCategoryUnknown
}
