package services

import (
	"context"
	"errors"
	"strings"

	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/httpclient"
)

// Retryabler lets callers declare retryability on their own error types.
// A caller-declared retryable error is handled by retry, not fallback; a
// declared non-retryable error is treated as fallback-worthy.
type Retryabler interface {
	Retryable() bool
}

// Classify maps an arbitrary provider error into a structured judgment.
// It is total: it never panics and handles nil. Rules are evaluated in
// order and the first match wins; message matching is case-insensitive.
func Classify(err error) domain.Classification {
	if err == nil {
		return domain.Classification{
			Category:       domain.CategoryUnknown,
			ShouldFallback: true,
			Message:        "An unknown error occurred",
		}
	}

	msg := strings.ToLower(err.Error())
	status := 0
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		status = upstream.StatusCode
		// The status line alone rarely carries the interesting phrase; the
		// response body usually does ("model not found", "rate limit", ...).
		msg += " " + strings.ToLower(string(upstream.Body))
	}

	switch {
	case containsAny(msg, "api key", "not configured", "missing"):
		return domain.Classification{
			Category:       domain.CategoryConfiguration,
			ShouldFallback: true,
			Message:        "Provider is not configured. Check your API key in settings.",
		}

	case status == 401 || status == 403 || containsAny(msg, "unauthorized", "forbidden"):
		return domain.Classification{
			Category:       domain.CategoryAuthentication,
			ShouldFallback: true,
			Message:        "Authentication failed. Check your API key.",
		}

	case status == 429 || containsAny(msg, "rate limit", "too many requests"):
		// Falling back beats making the user wait out a rate limit window.
		return domain.Classification{
			Category:       domain.CategoryRateLimit,
			Retryable:      true,
			ShouldFallback: true,
			Message:        "Rate limit reached. Trying another provider.",
		}

	case status == 404 || containsAny(msg, "model not found", "does not exist"):
		return domain.Classification{
			Category:       domain.CategoryModelNotFound,
			ShouldFallback: true,
			Message:        "The requested model is not available.",
		}

	case status >= 500 && status < 600:
		return domain.Classification{
			Category:       domain.CategoryServerError,
			Retryable:      true,
			ShouldFallback: true,
			Message:        "The provider is having trouble. Try again shortly.",
		}

	case containsAny(msg, "network", "fetch", "connection", "econnrefused", "enotfound"):
		return domain.Classification{
			Category:       domain.CategoryNetwork,
			Retryable:      true,
			ShouldFallback: true,
			Message:        "Network error. Check your connection.",
		}

	case errors.Is(err, context.DeadlineExceeded) || containsAny(msg, "timeout", "timed out"):
		return domain.Classification{
			Category:       domain.CategoryTimeout,
			Retryable:      true,
			ShouldFallback: true,
			Message:        "The request timed out. Try again shortly.",
		}
	}

	var r Retryabler
	if errors.As(err, &r) {
		retryable := r.Retryable()
		return domain.Classification{
			Category:       domain.CategoryUnknown,
			Retryable:      retryable,
			ShouldFallback: !retryable,
			Message:        err.Error(),
		}
	}

	return domain.Classification{
		Category:       domain.CategoryUnknown,
		ShouldFallback: true,
		Message:        "An unknown error occurred",
	}
}

// classifyTestError buckets a real connection test failure into the coarse
// kinds surfaced by the diagnostics API.
func classifyTestError(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindUnknown
	}

	msg := strings.ToLower(err.Error())
	status := 0
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		status = upstream.StatusCode
		msg += " " + strings.ToLower(string(upstream.Body))
	}

	switch {
	case status == 401 || status == 403 || containsAny(msg, "unauthorized", "forbidden", "api key", "not configured"):
		return domain.ErrorKindAuth
	case errors.Is(err, context.DeadlineExceeded) ||
		containsAny(msg, "timeout", "timed out", "network", "connection refused", "econnrefused", "enotfound", "no such host"):
		return domain.ErrorKindNetwork
	case status == 404 || containsAny(msg, "model not found", "does not exist"):
		return domain.ErrorKindModel
	default:
		return domain.ErrorKindUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
