// Package fallback runs an ordered ladder of strategies where the first one
// that succeeds wins. Components use it to express their degradation policy
// (diarization, voice catalog, translation tiers, synthesis) as data.
package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Strategy is one rung of a fallback ladder.
type Strategy[T any] struct {
	Name string
	// Timeout bounds Run when positive.
	Timeout time.Duration
	Run     func(ctx context.Context) (T, error)
	// Reject reports a non-nil error when a successful result must still be
	// treated as a failure.
	Reject func(T) error
}

// Failure records why a strategy was passed over.
type Failure struct {
	Strategy string
	Err      error
}

// Outcome describes the winning strategy and every failure before it.
type Outcome[T any] struct {
	Value    T
	Winner   string
	Failures []Failure
}

// Degraded reports whether any strategy ahead of the winner failed.
func (o Outcome[T]) Degraded() bool {
	return len(o.Failures) > 0
}

// ExhaustedError is returned when every strategy failed.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "fallback: no strategies"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return "fallback: all strategies failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes every failure cause to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FirstSuccess runs strategies in order and returns the first result that
// neither errors nor is rejected. Cancellation of ctx stops the ladder with
// the context error.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (Outcome[T], error) {
	var outcome Outcome[T]
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		if s.Run == nil {
			continue
		}
		value, err := runOne(ctx, s)
		if err == nil && s.Reject != nil {
			err = s.Reject(value)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome, ctxErr
			}
			outcome.Failures = append(outcome.Failures, Failure{Strategy: s.Name, Err: err})
			continue
		}
		outcome.Value = value
		outcome.Winner = s.Name
		return outcome, nil
	}
	return outcome, &ExhaustedError{Failures: outcome.Failures}
}

func runOne[T any](ctx context.Context, s Strategy[T]) (T, error) {
	if s.Timeout <= 0 {
		return s.Run(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	return s.Run(runCtx)
}
