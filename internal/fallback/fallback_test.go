package fallback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dubber/internal/fallback"
)

func TestFirstSuccessReturnsFirstWinner(t *testing.T) {
	calls := 0
	outcome, err := fallback.FirstSuccess(context.Background(),
		fallback.Strategy[string]{Name: "broken", Run: func(context.Context) (string, error) {
			calls++
			return "", errors.New("down")
		}},
		fallback.Strategy[string]{Name: "ok", Run: func(context.Context) (string, error) {
			calls++
			return "value", nil
		}},
		fallback.Strategy[string]{Name: "never", Run: func(context.Context) (string, error) {
			calls++
			return "unused", nil
		}},
	)
	if err != nil {
		t.Fatalf("FirstSuccess returned error: %v", err)
	}
	if outcome.Value != "value" || outcome.Winner != "ok" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if !outcome.Degraded() || len(outcome.Failures) != 1 || outcome.Failures[0].Strategy != "broken" {
		t.Fatalf("unexpected failures %+v", outcome.Failures)
	}
}

func TestFirstSuccessRejectAdvancesLadder(t *testing.T) {
	errShort := errors.New("too short")
	outcome, err := fallback.FirstSuccess(context.Background(),
		fallback.Strategy[string]{
			Name:   "llm",
			Run:    func(context.Context) (string, error) { return "", nil },
			Reject: func(v string) error {
				if v == "" {
					return errShort
				}
				return nil
			},
		},
		fallback.Strategy[string]{Name: "passthrough", Run: func(context.Context) (string, error) { return "hola", nil }},
	)
	if err != nil {
		t.Fatalf("FirstSuccess returned error: %v", err)
	}
	if outcome.Winner != "passthrough" {
		t.Fatalf("expected passthrough winner, got %q", outcome.Winner)
	}
	if !errors.Is(outcome.Failures[0].Err, errShort) {
		t.Fatalf("expected rejection error recorded, got %v", outcome.Failures[0].Err)
	}
}

func TestFirstSuccessExhausted(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	_, err := fallback.FirstSuccess(context.Background(),
		fallback.Strategy[int]{Name: "a", Run: func(context.Context) (int, error) { return 0, errA }},
		fallback.Strategy[int]{Name: "b", Run: func(context.Context) (int, error) { return 0, errB }},
	)
	var exhausted *fallback.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(exhausted.Failures) != 2 {
		t.Fatalf("expected two failures, got %d", len(exhausted.Failures))
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both causes reachable, got %v", err)
	}
}

func TestFirstSuccessTimeoutAdvances(t *testing.T) {
	outcome, err := fallback.FirstSuccess(context.Background(),
		fallback.Strategy[string]{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Run: func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
		fallback.Strategy[string]{Name: "fast", Run: func(context.Context) (string, error) { return "done", nil }},
	)
	if err != nil {
		t.Fatalf("FirstSuccess returned error: %v", err)
	}
	if outcome.Winner != "fast" {
		t.Fatalf("expected fast winner, got %q", outcome.Winner)
	}
	if !errors.Is(outcome.Failures[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline failure, got %v", outcome.Failures[0].Err)
	}
}

func TestFirstSuccessParentCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := false
	_, err := fallback.FirstSuccess(ctx,
		fallback.Strategy[string]{Name: "cancel", Run: func(context.Context) (string, error) {
			cancel()
			return "", errors.New("interrupted")
		}},
		fallback.Strategy[string]{Name: "after", Run: func(context.Context) (string, error) {
			called = true
			return "x", nil
		}},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatal("expected ladder to stop after cancellation")
	}
}
