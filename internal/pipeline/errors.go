package pipeline

import "errors"

// Pipeline-definition errors. They are never retried.
var (
	ErrDuplicateArtifact    = errors.New("duplicate artifact")
	ErrMissingArtifact      = errors.New("missing artifact")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrInvalidDefinition    = errors.New("invalid pipeline definition")
)

// Reasons recorded on skipped stages.
const (
	ReasonUnresolvedDependency = "UnresolvedDependency"
	ReasonAborted              = "aborted"
	ReasonCancelled            = "cancelled"
)
