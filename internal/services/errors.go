package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad user input such as a non-image file.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid credentials and settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrEncoding marks failures reading an image for transport.
	ErrEncoding = errors.New("encoding error")
	// ErrRequest marks a failed identification request.
	ErrRequest = errors.New("request error")
	// ErrLoad marks a debug sample that could not be read.
	ErrLoad = errors.New("load error")
	// ErrAuth marks a failed token refresh.
	ErrAuth = errors.New("auth error")
	// ErrLookup marks a systemic article lookup failure.
	ErrLookup = errors.New("lookup error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRequest
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy name of the outermost marker found in err, or
// "internal" when none applies.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrLookup):
		return "lookup"
	case errors.Is(err, ErrConfiguration):
		return "config"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrLoad):
		return "load"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRequest):
		return "request"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
