// Package coordinator runs maintenance jobs as a sequence of named steps.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step is a single unit of work in a job.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
}

type funcStep struct {
	name string
	fn   func(ctx context.Context) error
}

// NewStep wraps fn as a Step.
func NewStep(name string, fn func(ctx context.Context) error) Step {
	return funcStep{name: name, fn: fn}
}

func (s funcStep) Name() string                      { return s.name }
func (s funcStep) Execute(ctx context.Context) error { return s.fn(ctx) }

// Orchestrator runs its steps in order and stops at the first failure.
// Undoing completed steps is left to the caller, typically by running Start
// inside a database transaction.
type Orchestrator struct {
	job   string
	steps []Step
}

func NewOrchestrator(job string, steps ...Step) *Orchestrator {
	return &Orchestrator{job: job, steps: steps}
}

// Start runs the steps sequentially.
func (o *Orchestrator) Start(ctx context.Context) error {
	started := time.Now()
	for _, step := range o.steps {
		slog.DebugContext(ctx, "executing step", "job", o.job, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.ErrorContext(ctx, "step failed", "job", o.job, "step", step.Name(), "error", err)
			return fmt.Errorf("%s: %s: %w", o.job, step.Name(), err)
		}
	}
	slog.InfoContext(ctx, "job completed", "job", o.job, "steps", len(o.steps), "elapsed", time.Since(started))
	return nil
}
