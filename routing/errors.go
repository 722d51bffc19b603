package routing

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned, wrapped, for every route that cannot
// be constructed: missing URL template, missing predicate, missing handler,
// malformed constraint. It is never returned at request time.
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalidConfiguration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// InvalidConfiguration creates an error wrapping ErrInvalidConfiguration.
func InvalidConfiguration(format string, args ...any) error {
	return invalidConfiguration(format, args...)
}

// WrapInvalidConfiguration annotates err with the reason, keeping both the
// sentinel and the original error inspectable with errors.Is.
func WrapInvalidConfiguration(reason string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInvalidConfiguration) {
		return fmt.Errorf("%s: %w", reason, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, reason, err)
}
