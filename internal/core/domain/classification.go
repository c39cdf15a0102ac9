package domain

// ErrorCategory buckets a provider failure for retry/fallback policy and
// user-facing messaging.
type ErrorCategory string

const (
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryNetwork        ErrorCategory = "network"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryModelNotFound  ErrorCategory = "model_not_found"
	CategoryServerError    ErrorCategory = "server_error"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryUnknown        ErrorCategory = "unknown"
)

// Classification is the structured judgment derived from an arbitrary
// provider error. It is a pure value and is never stored.
type Classification struct {
	Category       ErrorCategory `json:"category"`
	Retryable      bool          `json:"retryable"`
	ShouldFallback bool          `json:"should_fallback"`
	Message        string        `json:"message"`
}
