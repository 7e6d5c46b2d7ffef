package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context().Get("file")
		if !exists || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("sync: %w", NetworkError("config request failed").Build())

		if !IsClassified(err) {
			t.Error("expected wrapped error to be classified")
		}
		if !HasCategory(err, CategoryNetwork) {
			t.Error("expected error to have network category")
		}
		classified, ok := AsClassified(err)
		if !ok || classified.RetryStrategy() != RetryNextCycle {
			t.Error("expected next-cycle retry on the wrapped error")
		}
	})

	t.Run("Unclassified errors", func(t *testing.T) {
		err := errors.New("plain")
		if IsClassified(err) {
			t.Error("expected plain error to be unclassified")
		}
		if HasCategory(err, CategoryInternal) {
			t.Error("expected no category on a plain error")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("original error")
		err := WrapError(originalErr, CategoryNetwork, "network failure").
			Warning().
			NextCycle().
			WithContext("host", "frame.local").
			WithContext("port", 5000).
			Build()

		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}
		if !err.CanRetry() {
			t.Error("expected retryable error")
		}

		host, _ := err.Context().Get("host")
		if host != "frame.local" {
			t.Errorf("expected host context 'frame.local', got %v", host)
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityWarning, RetryNextCycle},
			{"NetworkError", NetworkError("test"), CategoryNetwork, SeverityError, RetryNextCycle},
			{"HardwareError", HardwareError("test"), CategoryHardware, SeverityFatal, RetryRestart},
			{"ResourceError", ResourceError("test"), CategoryResource, SeverityError, RetryNextCycle},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	shared, _ := merged.Get("shared")
	if shared != "overridden" {
		t.Errorf("expected shared=overridden, got %v", shared)
	}
	if _, ok := merged.Get("key1"); !ok {
		t.Error("expected key1 to survive merge")
	}
}
