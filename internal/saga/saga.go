package saga

import (
	"context"
	"fmt"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

// Step is a single unit of work in a saga. Compensate undoes Execute and is
// only called when Execute succeeded and a later step failed.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

type funcStep struct {
	name       string
	execute    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// NewStep builds a Step from closures. compensate may be nil.
func NewStep(name string, execute, compensate func(ctx context.Context) error) Step {
	return &funcStep{name: name, execute: execute, compensate: compensate}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context) error { return s.execute(ctx) }

func (s *funcStep) Compensate(ctx context.Context) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx)
}

// CompensationFailure records a compensation that could not be applied.
type CompensationFailure struct {
	Step string
	Err  error
}

// Error is returned by Start when a step fails. It unwraps to the step's
// own error so callers can match domain errors with errors.Is / errors.As.
type Error struct {
	Step                 string
	Err                  error
	CompensationFailures []CompensationFailure
}

func (e *Error) Error() string {
	if len(e.CompensationFailures) > 0 {
		return fmt.Sprintf("saga step %s failed: %v (%d compensation(s) failed)", e.Step, e.Err, len(e.CompensationFailures))
	}
	return fmt.Sprintf("saga step %s failed: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Compensated reports whether every completed step was undone.
func (e *Error) Compensated() bool {
	return len(e.CompensationFailures) == 0
}

// Orchestrator runs steps in order and unwinds completed ones in reverse
// order when a step fails.
type Orchestrator struct {
	name  string
	steps []Step
	log   *logger.Logger
}

func NewOrchestrator(name string, steps ...Step) *Orchestrator {
	return &Orchestrator{
		name:  name,
		steps: steps,
		log:   logger.WithContext(map[string]interface{}{"saga": name}),
	}
}

// WithFields attaches extra log fields (order number, user id) to every entry.
func (o *Orchestrator) WithFields(fields map[string]interface{}) *Orchestrator {
	o.log = o.log.WithContext(fields)
	return o
}

// Start executes the saga. On failure it returns *Error after compensating.
func (o *Orchestrator) Start(ctx context.Context) error {
	completed := make([]Step, 0, len(o.steps))

	for _, step := range o.steps {
		o.log.Debug("Executing saga step", map[string]interface{}{"step": step.Name()})
		if err := step.Execute(ctx); err != nil {
			o.log.Warn("Saga step failed, starting rollback", map[string]interface{}{
				"step":  step.Name(),
				"error": err.Error(),
			})
			return &Error{
				Step:                 step.Name(),
				Err:                  err,
				CompensationFailures: o.rollback(ctx, completed),
			}
		}
		completed = append(completed, step)
	}

	o.log.Debug("Saga completed", map[string]interface{}{"steps": len(completed)})
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, completed []Step) []CompensationFailure {
	// compensation must run even when the caller's context is already done
	ctx = context.WithoutCancel(ctx)

	var failures []CompensationFailure
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		o.log.Debug("Compensating saga step", map[string]interface{}{"step": step.Name()})
		if err := step.Compensate(ctx); err != nil {
			o.log.Error("CRITICAL: failed to compensate saga step", err, map[string]interface{}{
				"step": step.Name(),
			})
			failures = append(failures, CompensationFailure{Step: step.Name(), Err: err})
		}
	}
	return failures
}
