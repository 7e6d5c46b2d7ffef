// Package errors provides the classified error primitives used across inkframe.
//
// Every fallible step of a wake cycle returns an error; the orchestrator inspects
// its category to pick a failure path instead of unwinding with panics.
//
// Key features:
//   - ErrorCategory: broad classification (network, validation, hardware, resource, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether the next wake is expected to succeed
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - HTTP and CLI adapters for error presentation
//
// Example usage:
//
//	err := errors.NetworkError("hash request failed").
//		WithContext("url", url).
//		WithCause(originalErr).
//		Build()
package errors
