package countdown

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig matches every ConfigError via errors.Is.
	ErrConfig = errors.New("countdown: invalid configuration")
	// ErrInvalidInput matches every InvalidInputError via errors.Is.
	ErrInvalidInput = errors.New("countdown: invalid input")
)

// ConfigError reports an invalid window, threshold, or scheduling parameter.
// It is returned at construction time and is never folded into a snapshot.
type ConfigError struct {
	Field  string
	Reason string
}

func newConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("countdown: config error: %s", e.Reason)
	}
	return fmt.Sprintf("countdown: config error: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfig) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// InvalidInputError reports a timestamp that could not be normalised to an Instant.
type InvalidInputError struct {
	Value  string
	Reason string
	Err    error
}

func newInvalidInputError(value any, reason string, err error) *InvalidInputError {
	return &InvalidInputError{Value: fmt.Sprintf("%v", value), Reason: reason, Err: err}
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("countdown: invalid input %q: %s", e.Value, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying parse failure.
func (e *InvalidInputError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidInput) match any InvalidInputError.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsInvalidInput reports whether err is, or wraps, an InvalidInputError.
func IsInvalidInput(err error) bool {
	var inputErr *InvalidInputError
	return errors.As(err, &inputErr)
}
