// Package errs defines the error taxonomy shared by the pipeline and its
// adapters. Provider and timeout errors end up as a job's error message.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ProviderError wraps a failure from an external provider: transport
// errors, upstream rejections and unparseable output all map here.
type ProviderError struct {
	Provider string // e.g. "kie", "mux", "openai", "ffmpeg"
	Op       string // short operation name
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider builds a ProviderError wrapping err.
func Provider(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Providerf builds a ProviderError from a formatted message.
func Providerf(provider, op, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: fmt.Errorf(format, args...)}
}

// TimeoutError is the provider failure raised when a bounded poll loop
// exhausts its attempts without reaching a terminal state.
type TimeoutError struct {
	Provider string
	Op       string
	Attempts int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: timed out after %d attempts (%s apart)",
		e.Provider, e.Op, e.Attempts, e.Interval)
}

// Timeout follows the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// Timeout builds a TimeoutError.
func Timeout(provider, op string, attempts int, interval time.Duration) *TimeoutError {
	return &TimeoutError{Provider: provider, Op: op, Attempts: attempts, Interval: interval}
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
