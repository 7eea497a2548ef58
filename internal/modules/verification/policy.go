// README: Random identity re-verification policy for online drivers.
package verification

import (
	"time"

	"riderhub/internal/config"
)

// Policy fires at most once per online session: after the driver has been
// online for After, and only when more than MinCompleted deliveries were
// completed today, a prompt is raised with chance Probability.
type Policy struct {
	Probability  float64
	MinCompleted int
	After        time.Duration
}

func FromConfig(cfg config.VerificationConfig) Policy {
	return Policy{
		Probability:  cfg.Probability,
		MinCompleted: cfg.MinCompleted,
		After:        cfg.After,
	}
}

// State is the per-session input to Evaluate.
type State struct {
	Online         bool
	OnlineSince    time.Time
	CompletedToday int
	Evaluated      bool
}

type Decision int

const (
	// NotYet means the session should be evaluated again later.
	NotYet Decision = iota
	// Skip means the draw happened and no prompt is raised this session.
	Skip
	Prompt
)

// Evaluate consumes one draw from the random source only when the session is
// due, so a fixed source yields deterministic outcomes in tests.
func (p Policy) Evaluate(s State, now time.Time, draw func() float64) Decision {
	if !s.Online || s.Evaluated || now.Sub(s.OnlineSince) < p.After {
		return NotYet
	}
	if s.CompletedToday <= p.MinCompleted {
		return Skip
	}
	if draw() < p.Probability {
		return Prompt
	}
	return Skip
}
