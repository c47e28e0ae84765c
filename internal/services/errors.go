package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrParse      = errors.New("invalid workflow format")
	ErrAnalysis   = errors.New("analysis failed")
	ErrTimeout    = errors.New("timeout")
	ErrTransient  = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the log-friendly classification of an error.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details classifies err by its sentinel marker. Unknown errors are reported
// with kind "storage", since everything else the pipeline raises is tagged.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "storage", Message: err.Error()}
	for _, known := range []struct {
		marker error
		kind   string
	}{
		{ErrValidation, "validation"},
		{ErrNotFound, "not_found"},
		{ErrParse, "parse"},
		{ErrAnalysis, "analysis"},
		{ErrTimeout, "timeout"},
		{ErrTransient, "transient"},
	} {
		if errors.Is(err, known.marker) {
			details.Kind = known.kind
			break
		}
	}
	return details
}

// IsItemFailure reports whether err should fail a single queue item rather
// than abort the processing step.
func IsItemFailure(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrAnalysis) || errors.Is(err, ErrTimeout)
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
