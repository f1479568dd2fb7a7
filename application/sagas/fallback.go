package sagas

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Attempt is one tier of a two-tier operation
type Attempt struct {
	Name       string
	Run        func(ctx context.Context) error
	MaxRetries int
	RetryDelay time.Duration
}

// State tracks where a fallback run ended up
type State string

const (
	StatePending          State = "PENDING"
	StatePrimarySucceeded State = "PRIMARY_SUCCEEDED"
	StateFellBack         State = "FELL_BACK"
	StateFailed           State = "FAILED"
)

// FallbackError keeps both tiers' failure reasons for diagnostics instead
// of discarding the first
type FallbackError struct {
	Operation string
	Primary   error
	Fallback  error
}

// Error implements the error interface
func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s: primary failed: %v; fallback failed: %v", e.Operation, e.Primary, e.Fallback)
}

// Unwrap exposes the fallback failure, the one that sealed the outcome
func (e *FallbackError) Unwrap() error {
	return e.Fallback
}

// Fallback runs a primary attempt and, when it fails, a second-tier
// attempt. The primary's failure is recoverable by definition; only a
// fallback failure is terminal.
type Fallback struct {
	name   string
	logger *zap.Logger
	state  State
}

// NewFallback creates a named two-tier runner
func NewFallback(name string, logger *zap.Logger) *Fallback {
	return &Fallback{
		name:   name,
		logger: logger,
		state:  StatePending,
	}
}

// State returns the runner's terminal state after Execute
func (f *Fallback) State() State {
	return f.state
}

// Execute runs the primary attempt, falling back on failure. Returns nil
// when either tier succeeds; a *FallbackError carrying both reasons when
// both fail.
func (f *Fallback) Execute(ctx context.Context, primary, fallback Attempt) error {
	primaryErr := f.runAttempt(ctx, primary)
	if primaryErr == nil {
		f.state = StatePrimarySucceeded
		return nil
	}

	f.logger.Warn("Primary attempt failed, falling back",
		zap.String("operation", f.name),
		zap.String("attempt", primary.Name),
		zap.Error(primaryErr),
	)

	fallbackErr := f.runAttempt(ctx, fallback)
	if fallbackErr == nil {
		f.state = StateFellBack
		f.logger.Info("Fallback attempt succeeded",
			zap.String("operation", f.name),
			zap.String("attempt", fallback.Name),
		)
		return nil
	}

	f.state = StateFailed
	f.logger.Error("Both attempts failed",
		zap.String("operation", f.name),
		zap.NamedError("primary_error", primaryErr),
		zap.NamedError("fallback_error", fallbackErr),
	)

	return &FallbackError{
		Operation: f.name,
		Primary:   primaryErr,
		Fallback:  fallbackErr,
	}
}

// runAttempt executes one attempt with its retry budget
func (f *Fallback) runAttempt(ctx context.Context, attempt Attempt) error {
	var lastErr error

	for try := 0; try <= attempt.MaxRetries; try++ {
		if try > 0 {
			f.logger.Debug("Retrying attempt",
				zap.String("operation", f.name),
				zap.String("attempt", attempt.Name),
				zap.Int("try", try+1),
			)
			select {
			case <-time.After(attempt.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := attempt.Run(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return lastErr
}
