package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Option func(*Runner)

// WithContinueOnFailure keeps running stages whose inputs are still
// available after a stage fails.
func WithContinueOnFailure(continueOnFailure bool) Option {
	return func(r *Runner) {
		r.continueOnFailure = continueOnFailure
	}
}

// WithRetryPolicy sets the policy used by stages without an override.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(r *Runner) {
		r.policy = policy
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// Runner executes stages one after another in declared order.
type Runner struct {
	specs             []StageSpec
	continueOnFailure bool
	policy            RetryPolicy
	logger            *slog.Logger
	runID             string
	now               func() time.Time
}

// NewRunner validates the stage definitions: names and outputs are unique,
// every capability is set and every required artifact is produced by a
// strictly earlier stage.
func NewRunner(specs []StageSpec, opts ...Option) (*Runner, error) {
	r := &Runner{
		policy: DefaultRetryPolicy(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := validate(specs); err != nil {
		return nil, err
	}
	r.specs = append([]StageSpec(nil), specs...)
	return r, nil
}

func validate(specs []StageSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidDefinition)
	}

	names := make(map[string]bool, len(specs))
	produced := make(map[string]bool, len(specs))

	for i, spec := range specs {
		switch {
		case spec.Name == "":
			return fmt.Errorf("%w: stage %d has no name", ErrInvalidDefinition, i)
		case names[spec.Name]:
			return fmt.Errorf("%w: stage name %q declared twice", ErrInvalidDefinition, spec.Name)
		case spec.Produces == "":
			return fmt.Errorf("%w: stage %q produces nothing", ErrInvalidDefinition, spec.Name)
		case produced[spec.Produces]:
			return fmt.Errorf("%w: artifact %q produced twice", ErrInvalidDefinition, spec.Produces)
		case spec.Execute == nil:
			return fmt.Errorf("%w: stage %q has no capability", ErrInvalidDefinition, spec.Name)
		}

		for _, req := range spec.Requires {
			if !produced[req] {
				return fmt.Errorf("%w: stage %q requires %q, which no earlier stage produces", ErrUnresolvedDependency, spec.Name, req)
			}
		}
		for _, opt := range spec.Optional {
			if !produced[opt] {
				return fmt.Errorf("%w: stage %q optionally reads %q, which no earlier stage produces", ErrUnresolvedDependency, spec.Name, opt)
			}
		}

		names[spec.Name] = true
		produced[spec.Produces] = true
	}

	return nil
}

// RunAll executes every stage against a fresh store and reports what
// happened. It never returns an error; all failures are in the report.
func (r *Runner) RunAll(ctx context.Context) *RunReport {
	store := NewStore()
	store.now = r.now

	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := r.logger.With("run_id", runID)

	report := &RunReport{
		RunID:     runID,
		Status:    RunRunning,
		Stages:    make([]StageResult, len(r.specs)),
		StartedAt: r.now(),
		store:     store,
	}
	for i, spec := range r.specs {
		report.Stages[i] = StageResult{Stage: spec.Name, Kind: spec.Kind, Produces: spec.Produces, Status: StatusPending}
	}

	logger.Info("pipeline started", "stages", len(r.specs), "continue_on_failure", r.continueOnFailure)

	failed := false
	for i, spec := range r.specs {
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline cancelled", "before_stage", spec.Name, "error", err)
			r.skipRemaining(report, i, ReasonCancelled)
			report.Status = RunAborted
			return r.finish(report, logger)
		}

		if missing, ok := firstMissing(store, spec.Requires); !ok {
			logger.Warn("stage skipped", "stage", spec.Name, "missing", missing)
			report.Stages[i].Status = StatusSkipped
			report.Stages[i].Reason = ReasonUnresolvedDependency
			report.Stages[i].Error = fmt.Sprintf("%s: %q", ErrUnresolvedDependency, missing)
			continue
		}

		stage := NewStage(spec, r.policy, logger)
		stage.now = r.now
		res := stage.Run(ctx, store)
		report.Stages[i] = res

		if res.Status != StatusFailed {
			continue
		}

		failed = true
		if !r.continueOnFailure || ctx.Err() != nil {
			reason := ReasonAborted
			if ctx.Err() != nil {
				reason = ReasonCancelled
			}
			r.skipRemaining(report, i+1, reason)
			report.Status = RunAborted
			return r.finish(report, logger)
		}
	}

	report.Status = RunCompleted
	if failed {
		report.Status = RunPartiallyFailed
	}
	return r.finish(report, logger)
}

func (r *Runner) skipRemaining(report *RunReport, from int, reason string) {
	for j := from; j < len(report.Stages); j++ {
		report.Stages[j].Status = StatusSkipped
		report.Stages[j].Reason = reason
	}
}

func (r *Runner) finish(report *RunReport, logger *slog.Logger) *RunReport {
	report.FinishedAt = r.now()
	report.Artifacts = report.store.Names()
	logger.Info("pipeline finished",
		"status", report.Status,
		"succeeded", report.Count(StatusSucceeded),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped),
		"duration", report.Duration(),
	)
	return report
}

func firstMissing(store *Store, names []string) (string, bool) {
	for _, name := range names {
		if !store.Has(name) {
			return name, false
		}
	}
	return "", true
}
