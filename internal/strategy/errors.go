package strategy

import (
	"errors"
	"fmt"
)

// ConfigError reports task parameters that cannot be run: unknown matchers
// or strategies, inverted bins, malformed scopes. It is raised while the
// strategy is built, before any step executes.
type ConfigError struct {
	// Field names the offending parameter.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
