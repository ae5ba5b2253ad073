// Package stage names the dubbing pipeline stages and runs them with uniform
// logging, timing, and health reporting.
package stage

import (
	"context"
	"log/slog"
	"time"

	"dubber/internal/logging"
	"dubber/internal/services"
)

// Pipeline stage names, in execution order.
const (
	Validate   = "validate"
	Resolve    = "resolve"
	Profile    = "profile"
	Match      = "match"
	Translate  = "translate"
	Synthesize = "synthesize"
	Assemble   = "assemble"
	Write      = "write"
)

// Order lists the stages in execution order.
var Order = []string{Validate, Resolve, Profile, Match, Translate, Synthesize, Assemble, Write}

// Observer receives stage durations.
type Observer interface {
	ObserveStage(stage string, seconds float64)
}

// Run executes fn as the named stage. The stage name is attached to the
// context handed to fn so every log line inside carries it.
func Run(ctx context.Context, logger *slog.Logger, observer Observer, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, logger)
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	err := fn(stageCtx)
	elapsed := time.Since(started)
	if observer != nil {
		observer.ObserveStage(name, elapsed.Seconds())
	}
	if err != nil {
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_class", services.Classify(err)),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}
