// Package errs holds the error markers shared by camrelay components.
//
// Components wrap failures with one of the sentinels below so callers can
// classify them with errors.Is without parsing messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig is fatal at startup.
	ErrConfig = errors.New("configuration error")
	// ErrCapture covers screenshot failures; the iteration is skipped.
	ErrCapture = errors.New("capture error")
	// ErrCrop covers region extraction failures; the region is omitted.
	ErrCrop = errors.New("crop error")
	// ErrDelivery covers upload failures; the artifact stays on disk.
	ErrDelivery = errors.New("delivery error")
)

// Wrap tags err with marker and prefixes it with component/operation context.
// A nil marker defaults to ErrCapture.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrCapture
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Configf is shorthand for a configuration error with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Kind names the marker carried by err, for log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrCapture):
		return "capture"
	case errors.Is(err, ErrCrop):
		return "crop"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	default:
		return "unknown"
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
		return "failure"
	}
	return strings.Join(parts, ": ")
}
