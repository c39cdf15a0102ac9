package domain

import "time"

// ModelResult is the outcome of resolving a model handle for one provider.
// Configured reflects the provider's current credentials, independent of
// whether the handle came from cache.
type ModelResult struct {
	Model      ModelHandle
	Configured bool
	Err        string
}

// ErrorKind is the coarse bucket used by real connection tests.
type ErrorKind string

const (
	ErrorKindAuth    ErrorKind = "auth"
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindModel   ErrorKind = "model"
	ErrorKindUnknown ErrorKind = "unknown"
)

// ConnectionTestResult reports the outcome of a provider connectivity check.
// Latency is wall-clock time measured regardless of success.
type ConnectionTestResult struct {
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
}

// ProviderModel pairs a provider with the model id to use on it.
type ProviderModel struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
}

// FallbackResult is the outcome of one fallback chain run. It is always a
// total value: exhaustion is reported through Error, never through a panic
// or a Go error return.
type FallbackResult struct {
	Model          ModelHandle
	Provider       ProviderID
	ModelID        string
	IsOriginal     bool
	FallbackReason string
	Attempted      []ProviderID
	Error          string
}
