package pipeline

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

type RunStatus string

const (
	RunPending         RunStatus = "pending"
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunPartiallyFailed RunStatus = "partially-failed"
	RunAborted         RunStatus = "aborted"
)

type StageResult struct {
	Stage      string    `json:"stage"`
	Kind       Kind      `json:"kind"`
	Produces   string    `json:"produces"`
	Status     Status    `json:"status"`
	Artifact   *Artifact `json:"artifact,omitempty"`
	Err        error     `json:"-"`
	Error      string    `json:"error,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Attempts   int       `json:"attempts"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

func (r StageResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type RunReport struct {
	RunID      string        `json:"run_id"`
	Status     RunStatus     `json:"status"`
	Stages     []StageResult `json:"stages"`
	Artifacts  []string      `json:"artifacts"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	store *Store
}

// Result returns the outcome recorded for the named stage.
func (r *RunReport) Result(stage string) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == stage {
			return res, true
		}
	}
	return StageResult{}, false
}

// Artifact returns a final artifact of the run.
func (r *RunReport) Artifact(name string) (Artifact, bool) {
	if r.store == nil {
		return Artifact{}, false
	}
	a, err := r.store.Get(name)
	return a, err == nil
}

func (r *RunReport) Count(status Status) int {
	n := 0
	for _, res := range r.Stages {
		if res.Status == status {
			n++
		}
	}
	return n
}

// FirstFailure returns the earliest failed stage, if any.
func (r *RunReport) FirstFailure() (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Status == StatusFailed {
			return res, true
		}
	}
	return StageResult{}, false
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// String renders a one-line-per-stage summary for logs and the CLI.
func (r *RunReport) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("run %s: %s (%s)\n", r.RunID, r.Status, r.Duration().Round(time.Millisecond)))
	for _, res := range r.Stages {
		sb.WriteString(fmt.Sprintf("  %-16s %-9s attempts=%d", res.Stage, res.Status, res.Attempts))
		if res.Reason != "" {
			sb.WriteString(" reason=" + res.Reason)
		}
		if res.Error != "" {
			sb.WriteString(" error=" + res.Error)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
