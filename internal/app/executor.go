package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// Profile writes go through five steps:
//
//	validate -> perform -> verify -> archive -> respond
//
// Nothing is stored before verify succeeds and the caller sees no result
// before archive has run. Every step is optional.

// ExecutionStep names one step of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step an operation stopped at.
type ExecutionError struct {
	Operation string
	Step      ExecutionStep
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s step: %v", e.Operation, e.Step, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// StepOf returns the step at which err stopped an operation.
func StepOf(err error) (ExecutionStep, bool) {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Step, true
	}

	return "", false
}

// Executor runs Operations with a span and step-level logs.
type Executor struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewExecutor returns an executor logging to logger, or slog.Default when nil.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger, tracer: otel.Tracer("github.com/jsamuelsen/daily-quote/internal/app")}
}

// Operation is a profile write split into steps. I is the input, P the
// performed result, V the verified result that gets archived, O the output.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, in I) error
	Perform  func(ctx context.Context, in I) (P, error)
	Verify   func(ctx context.Context, in I, performed P) (V, error)
	Archive  func(ctx context.Context, in I, verified V) error
	Respond  func(ctx context.Context, in I, verified V) (O, error)
}

// Execute runs op for in. A failing step stops the run and is returned
// as an *ExecutionError.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], in I) (out O, err error) {
	ctx, span := exec.tracer.Start(ctx, "app."+op.Name)
	defer span.End()

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	fail := func(step ExecutionStep, cause error) error {
		level := slog.LevelError
		if step == StepValidate || step == StepRespond {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "operation step failed", slog.String("step", string(step)), slog.Any("error", cause))
		span.SetStatus(codes.Error, string(step))

		return &ExecutionError{Operation: op.Name, Step: step, Cause: cause}
	}

	if op.Validate != nil {
		if err := op.Validate(ctx, in); err != nil {
			return out, fail(StepValidate, err)
		}
	}

	var performed P
	if op.Perform != nil {
		if performed, err = op.Perform(ctx, in); err != nil {
			return out, fail(StepPerform, err)
		}
	}

	var verified V
	if op.Verify != nil {
		if verified, err = op.Verify(ctx, in, performed); err != nil {
			return out, fail(StepVerify, err)
		}
	}

	if op.Archive != nil {
		if err := op.Archive(ctx, in, verified); err != nil {
			return out, fail(StepArchive, err)
		}
	}

	if op.Respond != nil {
		if out, err = op.Respond(ctx, in, verified); err != nil {
			var zero O
			return zero, fail(StepRespond, err)
		}
	}

	logging.Trace(ctx, logger, "operation completed", slog.Duration("duration", time.Since(start)))

	return out, nil
}
