package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/fluency/internal/repository"
)

var (
	// ErrNotFound is returned when a recording, passage or evaluation does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrServiceUnavailable is returned when an external client was never configured.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError reports malformed input. Nothing is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// TranscriptionError wraps any failure of the speech-to-text call.
// Transient marks failures that are worth re-triggering later.
type TranscriptionError struct {
	Transient bool
	Err       error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (transient=%t): %v", e.Transient, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// EvaluationError wraps any failure of the language-model call. A response
// that merely lacks some metrics is not an EvaluationError.
type EvaluationError struct {
	Transient bool
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ai evaluation failed (transient=%t): %v", e.Transient, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// ParseWarning lists the metrics a model response did not contain. Those
// metrics are zero-filled and the pipeline carries on.
type ParseWarning struct {
	Missing []string
}

func (w ParseWarning) Partial() bool { return len(w.Missing) > 0 }

func (w ParseWarning) String() string {
	return strings.Join(w.Missing, ",")
}

func IsTransient(err error) bool {
	var te *TranscriptionError
	if errors.As(err, &te) {
		return te.Transient
	}
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Transient
	}
	return false
}
