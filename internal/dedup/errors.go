package dedup

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid deduplication input")
	ErrPlanConflict = errors.New("edit plan conflict")
	ErrEmptyResult  = errors.New("deduplication excised the whole track")
)

// InputError reports malformed or inconsistent input. Index is the offending
// segment, or -1 when the problem is not tied to one segment.
type InputError struct {
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: segment %d: %s", ErrInvalidInput, e.Index, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func inputErr(index int, format string, args ...any) *InputError {
	return &InputError{Index: index, Reason: fmt.Sprintf(format, args...)}
}

// PlanConflictError means an EditPlan broke its own invariants after merging.
// It is a defect signal: the plan is never applied.
type PlanConflictError struct {
	Ranges []Range
	Reason string
}

func (e *PlanConflictError) Error() string {
	parts := make([]string, len(e.Ranges))
	for i, r := range e.Ranges {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%s: %s: %s", ErrPlanConflict, e.Reason, strings.Join(parts, " "))
}

func (e *PlanConflictError) Is(target error) bool {
	return target == ErrPlanConflict
}

// EmptyResultWarning is attached to a Report when nothing, or next to
// nothing, survives. The Result is still valid.
type EmptyResultWarning struct {
	InputDuration  time.Duration
	OutputDuration time.Duration
	Surviving      int
}

func (w *EmptyResultWarning) Error() string {
	return fmt.Sprintf("%s: %d segments and %s of %s remain", ErrEmptyResult, w.Surviving, w.OutputDuration, w.InputDuration)
}

func (w *EmptyResultWarning) Is(target error) bool {
	return target == ErrEmptyResult
}
