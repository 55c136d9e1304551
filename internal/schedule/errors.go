package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks failures to build a Config: malformed manifest,
	// unknown kind or provider, bad time expression, decorator failure.
	ErrConfiguration = errors.New("configuration error")

	// ErrProvider marks a failed per-kind provider call.
	ErrProvider = errors.New("provider error")
)

// ConfigError describes a configuration failure. Field names the manifest
// key (or kind) involved.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schedule: configuration: %v", e.Err)
	}
	return fmt.Sprintf("schedule: configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// ProviderError wraps the failure of one kind's provider call.
type ProviderError struct {
	Kind     string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("schedule: provider %q for kind %q: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }
