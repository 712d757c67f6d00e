package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

// Kind tags the external capability a stage delegates to.
type Kind string

const (
	KindFetch     Kind = "fetch"
	KindSummarize Kind = "summarize"
	KindChart     Kind = "chart"
	KindTranslate Kind = "translate"
	KindDeliver   Kind = "deliver"
	KindArchive   Kind = "archive"
	KindRemember  Kind = "remember"
)

// Inputs maps artifact names to payloads for one capability call.
type Inputs map[string]any

// Input returns the payload stored under name as a T. A missing or mistyped
// payload is fatal: it means the pipeline was wired wrong.
func Input[T any](in Inputs, name string) (T, error) {
	var zero T
	raw, ok := in[name]
	if !ok {
		return zero, fault.Fatal(fmt.Errorf("%w: %q", ErrMissingArtifact, name))
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fault.Fatalf("artifact %q has type %T, want %T", name, raw, zero)
	}
	return v, nil
}

// Lookup returns the payload stored under name when present and of type T.
func Lookup[T any](in Inputs, name string) (T, bool) {
	v, ok := in[name].(T)
	return v, ok
}

// Capability is the external work behind a stage.
type Capability func(ctx context.Context, in Inputs) (any, error)

type RetryPolicy struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    60 * time.Second,
	}
}

// backOff doubles from BaseDelay up to MaxDelay without jitter and gives up
// after MaxRetries retries or when ctx is done.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	// NewExponentialBackOff seeded the current interval from the defaults.
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

type StageSpec struct {
	Name     string
	Kind     Kind
	Requires []string
	// Optional artifacts are handed to the capability when present and
	// never block the stage.
	Optional []string
	Produces string
	Execute  Capability
	// Retry overrides the runner's policy for this stage.
	Retry *RetryPolicy
}

type Stage struct {
	spec   StageSpec
	policy RetryPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewStage(spec StageSpec, policy RetryPolicy, logger *slog.Logger) *Stage {
	if spec.Retry != nil {
		policy = *spec.Retry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		spec:   spec,
		policy: policy,
		logger: logger.With("stage", spec.Name),
		now:    time.Now,
	}
}

func (s *Stage) Spec() StageSpec {
	return s.spec
}

func (s *Stage) Policy() RetryPolicy {
	return s.policy
}

// Run resolves the stage inputs from store, calls the capability with
// retries and writes the output on success. Failures are returned in the
// result, never as a panic.
func (s *Stage) Run(ctx context.Context, store *Store) StageResult {
	res := StageResult{
		Stage:     s.spec.Name,
		Kind:      s.spec.Kind,
		Produces:  s.spec.Produces,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}

	inputs, err := s.resolve(store)
	if err != nil {
		s.logger.Error("stage inputs unresolved", "error", err)
		return s.finish(res, StatusFailed, err)
	}

	payload, attempts, err := s.attempt(ctx, inputs)
	res.Attempts = attempts
	if err != nil {
		s.logger.Error("stage failed", "attempts", attempts, "error", err)
		return s.finish(res, StatusFailed, err)
	}

	if err := store.Put(s.spec.Produces, payload); err != nil {
		s.logger.Error("stage output rejected", "artifact", s.spec.Produces, "error", err)
		return s.finish(res, StatusFailed, err)
	}

	artifact, _ := store.Get(s.spec.Produces)
	res.Artifact = &artifact

	s.logger.Info("stage succeeded", "attempts", attempts, "artifact", s.spec.Produces)
	return s.finish(res, StatusSucceeded, nil)
}

func (s *Stage) resolve(store *Store) (Inputs, error) {
	inputs := make(Inputs, len(s.spec.Requires)+len(s.spec.Optional))

	for _, name := range s.spec.Requires {
		a, err := store.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w: stage %q requires %q", ErrUnresolvedDependency, s.spec.Name, name)
		}
		inputs[name] = a.Payload
	}

	for _, name := range s.spec.Optional {
		if a, err := store.Get(name); err == nil {
			inputs[name] = a.Payload
		}
	}

	return inputs, nil
}

func (s *Stage) attempt(ctx context.Context, inputs Inputs) (any, int, error) {
	var (
		payload  any
		attempts int
	)

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		out, err := s.call(ctx, inputs)
		if err == nil {
			payload = out
			return nil
		}
		if !fault.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("transient stage failure, retrying", "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(op, s.policy.backOff(ctx), notify)
	return payload, attempts, err
}

type outcome struct {
	payload any
	err     error
}

// call runs one attempt under the stage timeout. The capability runs on its
// own goroutine so that a call ignoring its context still times out.
func (s *Stage) call(ctx context.Context, inputs Inputs) (any, error) {
	attemptCtx := ctx
	cancel := func() {}
	if s.policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, s.policy.Timeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fault.Fatalf("stage %q panicked: %v", s.spec.Name, r)}
			}
		}()
		out, err := s.spec.Execute(attemptCtx, inputs)
		done <- outcome{payload: out, err: err}
	}()

	select {
	case o := <-done:
		return s.settle(ctx, attemptCtx, o)
	case <-attemptCtx.Done():
	}

	// The capability may have finished just as the context expired.
	select {
	case o := <-done:
		return s.settle(ctx, attemptCtx, o)
	default:
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fault.Transientf("stage %q timed out after %s", s.spec.Name, s.policy.Timeout)
}

func (s *Stage) settle(ctx, attemptCtx context.Context, o outcome) (any, error) {
	if o.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, fault.Transient(fmt.Errorf("stage %q timed out after %s: %w", s.spec.Name, s.policy.Timeout, o.err))
	}
	return o.payload, o.err
}

func (s *Stage) finish(res StageResult, status Status, err error) StageResult {
	res.Status = status
	res.FinishedAt = s.now()
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	return res
}
