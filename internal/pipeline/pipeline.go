package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/webcrawler/internal/model"
)

// Step is one stage of a run.
type Step interface {
	// Do executes the step and records its results in report.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step name used in logs and in report.Steps.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps      []Step
	finalSteps []Step
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends main steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalSteps appends steps that run after the main steps even when one
// of them failed or ctx was cancelled.
func (p *Pipeline) AddFinalSteps(steps ...Step) {
	p.finalSteps = append(p.finalSteps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps)+len(p.finalSteps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}

// Execute runs the main steps until one fails, sets report.FinishedAt, then
// runs the final steps. It returns the main step error if there was one,
// otherwise the first final step error.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	mainErr := p.runMain(ctx, report)
	if mainErr != nil {
		report.Error = mainErr.Error()
		if report.Outcome == model.OutcomeCompleted {
			report.Outcome = outcomeFor(mainErr)
		}
	}
	report.FinishedAt = time.Now()

	// Final steps must run after an interrupt.
	finalCtx := context.WithoutCancel(ctx)
	var finalErr error
	for _, step := range p.finalSteps {
		p.logger.Debug("executing final step", "step", step.Name())
		if err := step.Do(finalCtx, report); err != nil {
			p.logger.Error("final step failed", "step", step.Name(), "error", err)
			if finalErr == nil {
				finalErr = err
			}
			continue
		}
		report.Steps = append(report.Steps, step.Name())
	}

	if mainErr != nil {
		return mainErr
	}
	return finalErr
}

func (p *Pipeline) runMain(ctx context.Context, report *model.RunReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "target", report.Target)
		if err := step.Do(ctx, report); err != nil {
			p.logger.Debug("step failed", "step", step.Name(), "error", err)
			return err
		}
		report.Steps = append(report.Steps, step.Name())
	}
	return nil
}

// outcomeFor maps an error to the outcome recorded for the run.
func outcomeFor(err error) model.Outcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrInterrupted) {
		return model.OutcomeInterrupted
	}
	return model.OutcomeAborted
}
