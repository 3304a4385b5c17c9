package core

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of configuration errors: missing credentials, unknown
// providers, unusable DSNs. They surface immediately and are never retried.
var ErrConfig = errors.New("configuration error")

// ConfigError wraps ErrConfig with the offending field.
func ConfigError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrConfig, field, fmt.Sprintf(format, args...))
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return errors.Is(err, ErrConfig) }
