package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autocaption/internal/catalog"
)

var (
	ErrDecode           = errors.New("decode error")
	ErrEmptyVideo       = errors.New("empty video")
	ErrConfiguration    = errors.New("configuration error")
	ErrCancelled        = errors.New("processing cancelled")
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInference        = errors.New("inference error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Cancelled tags a context error so callers can match either ErrCancelled or
// the original context.Canceled / context.DeadlineExceeded.
func Cancelled(stage string, err error) error {
	if err == nil {
		err = context.Canceled
	}
	return Wrap(ErrCancelled, stage, "", "", err)
}

// IsCancellation reports whether err represents cooperative cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// FailureStatus maps a pipeline error to the run status the catalog should
// persist after processing stops.
func FailureStatus(err error) catalog.Status {
	switch {
	case err == nil:
		return catalog.StatusCompleted
	case IsCancellation(err):
		return catalog.StatusCancelled
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return catalog.StatusRejected
	default:
		return catalog.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
