package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInterrupted = errors.New("evaluation interrupted")
	ErrAborted     = errors.New("evaluation aborted")
)

// DefaultCheckInterval is the number of successful transitions between
// two cancellation checks.
const DefaultCheckInterval = 20000

// InterruptChecker is polled at every check in addition to the context.
// It stands in for an interactive "interrupt requested" signal.
type InterruptChecker interface {
	Interrupted() bool
}

// ExecutionContext is the cooperative cancellation token threaded through
// a query run. Once stopped it stays stopped until Rearm is called.
type ExecutionContext struct {
	ctx     context.Context
	checker InterruptChecker

	// checkCounter amortizes cancellation checks.
	checkCounter  int
	checkInterval int

	err error
}

// NewExecutionContext creates a running token bound to ctx. A non-positive
// interval selects DefaultCheckInterval.
func NewExecutionContext(ctx context.Context, interval int) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &ExecutionContext{
		ctx:           ctx,
		checkInterval: interval,
	}
}

// WithChecker attaches an additional interrupt source.
func (ec *ExecutionContext) WithChecker(c InterruptChecker) *ExecutionContext {
	ec.checker = c
	return ec
}

// Context returns the bound context.
func (ec *ExecutionContext) Context() context.Context {
	return ec.ctx
}

// Running reports whether evaluation may continue.
func (ec *ExecutionContext) Running() bool {
	return ec.err == nil
}

// Err returns the reason evaluation stopped, or nil.
func (ec *ExecutionContext) Err() error {
	return ec.err
}

// Abort stops evaluation with err. Only the first reason is kept.
func (ec *ExecutionContext) Abort(err error) {
	if ec.err != nil {
		return
	}
	if err == nil {
		err = ErrAborted
	}
	ec.err = err
}

// Rearm clears a previous stop so the token can drive a new evaluation.
func (ec *ExecutionContext) Rearm() {
	ec.err = nil
	ec.checkCounter = 0
}

// Tick counts one unit of work and polls for cancellation every
// checkInterval ticks. It returns false once evaluation has stopped.
func (ec *ExecutionContext) Tick() bool {
	if ec.err != nil {
		return false
	}
	ec.checkCounter++
	if ec.checkCounter >= ec.checkInterval {
		ec.checkCounter = 0
		ec.Check()
	}
	return ec.err == nil
}

// Check polls for cancellation immediately.
func (ec *ExecutionContext) Check() bool {
	if ec.err != nil {
		return false
	}
	if err := ec.ctx.Err(); err != nil {
		ec.err = fmt.Errorf("%w: %w", ErrInterrupted, err)
		return false
	}
	if ec.checker != nil && ec.checker.Interrupted() {
		ec.err = ErrInterrupted
		return false
	}
	return true
}
