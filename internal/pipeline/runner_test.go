package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

func newTestRunner(t *testing.T, specs []StageSpec, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithRetryPolicy(fastRetry), WithLogger(quietLogger)}, opts...)
	r, err := NewRunner(specs, opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func statuses(report *RunReport) []Status {
	out := make([]Status, len(report.Stages))
	for i, res := range report.Stages {
		out[i] = res.Status
	}
	return out
}

func chain() []StageSpec {
	return []StageSpec{
		{Name: "fetchNews", Kind: KindFetch, Produces: "news", Execute: constant([]string{"a", "b"})},
		{Name: "summarize", Kind: KindSummarize, Requires: []string{"news"}, Produces: "summary", Execute: constant("S")},
		{Name: "renderCharts", Kind: KindChart, Requires: []string{"news"}, Produces: "charts", Execute: constant([]string{"c1"})},
		{Name: "translate_hi", Kind: KindTranslate, Requires: []string{"summary"}, Produces: "tr_hi", Execute: constant("H")},
		{Name: "deliver", Kind: KindDeliver, Requires: []string{"summary", "charts", "tr_hi"}, Produces: "receipt", Execute: constant("sent")},
	}
}

func TestRunAllCompleted(t *testing.T) {
	report := newTestRunner(t, chain(), WithRunID("run-1")).RunAll(context.Background())

	assert.Equal(t, RunCompleted, report.Status)
	assert.Equal(t, "run-1", report.RunID)

	want := []Status{StatusSucceeded, StatusSucceeded, StatusSucceeded, StatusSucceeded, StatusSucceeded}
	if diff := cmp.Diff(want, statuses(report)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, res := range report.Stages {
		names = append(names, res.Stage)
	}
	if diff := cmp.Diff([]string{"fetchNews", "summarize", "renderCharts", "translate_hi", "deliver"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"news", "summary", "charts", "tr_hi", "receipt"}, report.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}

	receipt, ok := report.Artifact("receipt")
	assert.Equal(t, true, ok)
	assert.Equal(t, "sent", receipt.Payload)
}

func TestRunAllFailFastSkipsRemaining(t *testing.T) {
	specs := chain()
	specs[1].Execute = failing(fault.Fatalf("model rejected request"))

	report := newTestRunner(t, specs).RunAll(context.Background())

	assert.Equal(t, RunAborted, report.Status)

	want := []Status{StatusSucceeded, StatusFailed, StatusSkipped, StatusSkipped, StatusSkipped}
	if diff := cmp.Diff(want, statuses(report)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	for _, res := range report.Stages[2:] {
		assert.Equal(t, ReasonAborted, res.Reason)
		assert.Equal(t, 0, res.Attempts)
	}

	for _, name := range []string{"summary", "charts", "tr_hi", "receipt"} {
		_, ok := report.Artifact(name)
		assert.Equal(t, false, ok)
	}

	failure, ok := report.FirstFailure()
	assert.Equal(t, true, ok)
	assert.Equal(t, "summarize", failure.Stage)
}

func TestRunAllContinueOnFailurePropagatesSkips(t *testing.T) {
	specs := chain()
	specs[1].Execute = failing(fault.Fatalf("model rejected request"))

	report := newTestRunner(t, specs, WithContinueOnFailure(true)).RunAll(context.Background())

	assert.Equal(t, RunPartiallyFailed, report.Status)

	// renderCharts only needs news, so it still runs.
	want := []Status{StatusSucceeded, StatusFailed, StatusSucceeded, StatusSkipped, StatusSkipped}
	if diff := cmp.Diff(want, statuses(report)); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"translate_hi", "deliver"} {
		res, _ := report.Result(name)
		assert.Equal(t, ReasonUnresolvedDependency, res.Reason)
	}

	if diff := cmp.Diff([]string{"news", "charts"}, report.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllContinueOnFailureWithOptionalInputs(t *testing.T) {
	specs := chain()
	specs[3].Execute = failing(fault.Transientf("translation timed out"))
	specs[4].Requires = []string{"summary"}
	specs[4].Optional = []string{"charts", "tr_hi"}

	report := newTestRunner(t, specs, WithContinueOnFailure(true)).RunAll(context.Background())

	assert.Equal(t, RunPartiallyFailed, report.Status)

	res, _ := report.Result("translate_hi")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, fastRetry.MaxRetries+1, res.Attempts)

	res, _ = report.Result("deliver")
	assert.Equal(t, StatusSucceeded, res.Status)
}

func TestRunAllFailureOnLastStageSkipsNothing(t *testing.T) {
	specs := chain()
	specs[4].Execute = failing(fault.Fatalf("chat not found"))

	report := newTestRunner(t, specs).RunAll(context.Background())

	assert.Equal(t, RunAborted, report.Status)
	assert.Equal(t, 0, report.Count(StatusSkipped))
	assert.Equal(t, 4, report.Count(StatusSucceeded))

	res, _ := report.Result("deliver")
	assert.Equal(t, StatusFailed, res.Status)
}

func TestRunAllCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestRunner(t, chain()).RunAll(ctx)

	assert.Equal(t, RunAborted, report.Status)
	assert.Equal(t, len(chain()), report.Count(StatusSkipped))
	for _, res := range report.Stages {
		assert.Equal(t, ReasonCancelled, res.Reason)
	}
}

func TestRunAllCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	specs := chain()
	specs[0].Execute = func(_ context.Context, _ Inputs) (any, error) {
		cancel()
		return []string{"a"}, nil
	}

	report := newTestRunner(t, specs, WithContinueOnFailure(true)).RunAll(ctx)

	// The first stage may observe the cancellation itself; everything after
	// it must be skipped either way.
	assert.Equal(t, RunAborted, report.Status)
	assert.Equal(t, true, report.Stages[0].Status.Terminal())
	for _, res := range report.Stages[1:] {
		assert.Equal(t, StatusSkipped, res.Status)
		assert.Equal(t, ReasonCancelled, res.Reason)
	}
}

func TestNewRunnerRejectsInvalidDefinitions(t *testing.T) {
	noop := constant("x")

	tests := []struct {
		name  string
		specs []StageSpec
		want  error
	}{
		{
			name:  "empty",
			specs: nil,
			want:  ErrInvalidDefinition,
		},
		{
			name: "forward reference",
			specs: []StageSpec{
				{Name: "summarize", Requires: []string{"news"}, Produces: "summary", Execute: noop},
				{Name: "fetchNews", Produces: "news", Execute: noop},
			},
			want: ErrUnresolvedDependency,
		},
		{
			name: "self reference",
			specs: []StageSpec{
				{Name: "loop", Requires: []string{"loop_out"}, Produces: "loop_out", Execute: noop},
			},
			want: ErrUnresolvedDependency,
		},
		{
			name: "duplicate output",
			specs: []StageSpec{
				{Name: "a", Produces: "news", Execute: noop},
				{Name: "b", Produces: "news", Execute: noop},
			},
			want: ErrInvalidDefinition,
		},
		{
			name: "duplicate name",
			specs: []StageSpec{
				{Name: "a", Produces: "x", Execute: noop},
				{Name: "a", Produces: "y", Execute: noop},
			},
			want: ErrInvalidDefinition,
		},
		{
			name:  "missing capability",
			specs: []StageSpec{{Name: "a", Produces: "x"}},
			want:  ErrInvalidDefinition,
		},
		{
			name: "unknown optional input",
			specs: []StageSpec{
				{Name: "a", Optional: []string{"ghost"}, Produces: "x", Execute: noop},
			},
			want: ErrUnresolvedDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(tt.specs)
			assert.Equal(t, true, errors.Is(err, tt.want))
		})
	}
}

func TestRunAllUsesFreshStorePerRun(t *testing.T) {
	r := newTestRunner(t, chain())

	first := r.RunAll(context.Background())
	second := r.RunAll(context.Background())

	assert.Equal(t, RunCompleted, first.Status)
	assert.Equal(t, RunCompleted, second.Status)
	assert.NotEqual(t, first.RunID, second.RunID)
}
