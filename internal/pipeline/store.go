package pipeline

import (
	"fmt"
	"time"
)

type Artifact struct {
	Name       string    `json:"name"`
	Payload    any       `json:"-"`
	ProducedAt time.Time `json:"produced_at"`
}

// Store holds the artifacts of a single run. Each name is written at most
// once. Payloads must not be mutated after Put.
//
// A Store is not safe for concurrent use; the runner touches it from one
// goroutine at a time.
type Store struct {
	artifacts map[string]Artifact
	order     []string
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		artifacts: make(map[string]Artifact),
		now:       time.Now,
	}
}

func (s *Store) Put(name string, payload any) error {
	if _, ok := s.artifacts[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateArtifact, name)
	}

	s.artifacts[name] = Artifact{
		Name:       name,
		Payload:    payload,
		ProducedAt: s.now(),
	}
	s.order = append(s.order, name)
	return nil
}

func (s *Store) Get(name string) (Artifact, error) {
	a, ok := s.artifacts[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %q", ErrMissingArtifact, name)
	}
	return a, nil
}

func (s *Store) Has(name string) bool {
	_, ok := s.artifacts[name]
	return ok
}

// Names lists stored artifacts in the order they were produced.
func (s *Store) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}
