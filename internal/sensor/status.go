package sensor

import (
	"context"
	"fmt"

	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// rule maps one remote state to a terminal outcome. States without a rule are
// in progress.
type rule struct {
	kind   types.PokeState
	reason string
}

func succeeds() rule                   { return rule{kind: types.PokeDone} }
func failsWith(reason string) rule     { return rule{kind: types.PokeFailed, reason: reason} }
func cancelledWith(reason string) rule { return rule{kind: types.PokeCancelled, reason: reason} }

// observation is a fetched remote state plus any diagnostic the service attached.
type observation[S comparable] struct {
	state  S
	detail string
}

// statusSensor fetches a remote state of type S and classifies it via a rule table.
type statusSensor[S comparable] struct {
	base
	noun  string // "dataproc job", "glue job run", ...
	id    string
	rules map[S]rule
	name  func(S) string
	fetch func(ctx context.Context) (observation[S], error)
}

// Poke fetches the remote state once and classifies it.
func (s *statusSensor[S]) Poke(ctx context.Context) (bool, error) {
	obs, err := s.fetch(ctx)
	if err != nil {
		return false, s.fetchErr(err)
	}
	return s.classify(obs)
}

func (s *statusSensor[S]) fetchErr(err error) error {
	return fmt.Errorf("%s %s: fetching state: %w", s.noun, s.id, err)
}

func (s *statusSensor[S]) classify(obs observation[S]) (bool, error) {
	state := s.name(obs.state)
	r, ok := s.rules[obs.state]
	if !ok {
		s.logger.Info("waiting for completion", "id", s.id, "state", state)
		return false, nil
	}

	switch r.kind {
	case types.PokeDone:
		s.logger.Debug("completed successfully", "id", s.id, "state", state)
		return true, nil
	case types.PokeFailed, types.PokeCancelled:
		return false, &TerminalError{
			Kind:   r.kind,
			Reason: r.reason,
			Noun:   s.noun,
			ID:     s.id,
			State:  state,
			Detail: obs.detail,
		}
	default:
		return false, fmt.Errorf("%s %s: state %s maps to unknown outcome %q", s.noun, s.id, state, r.kind)
	}
}
