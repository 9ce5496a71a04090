// Package outcome converts a qualitative difficulty label into a
// probabilistic success decision. The gate is pure and seedable so the
// orchestrator's behavior stays independently testable.
package outcome

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidOdds = errors.New("invalid odds label")

// Difficulty tiers, from guaranteed failure to guaranteed success.
const (
	OddsImpossible = "Impossible"
	OddsDifficult  = "Difficult"
	OddsMedium     = "Medium"
	OddsEasy       = "Easy"
	OddsAccept     = "Accept"
)

// baseOdds maps each tier to its fixed success probability.
var baseOdds = map[string]float64{
	OddsImpossible: 0.0,
	OddsDifficult:  0.25,
	OddsMedium:     0.5,
	OddsEasy:       0.75,
	OddsAccept:     1.0,
}

// Resolver performs weighted success draws.
type Resolver struct {
	rng *rand.Rand
}

// NewResolver creates a resolver around the given random source.
func NewResolver(rng *rand.Rand) *Resolver {
	return &Resolver{rng: rng}
}

// Probability returns the success probability for an odds label.
func Probability(odds string) (float64, error) {
	p, ok := baseOdds[odds]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOdds, odds)
	}
	return p, nil
}

// Resolve draws against the probability for the given odds label. Unknown
// labels fail with ErrInvalidOdds; the resolver never guesses.
func (r *Resolver) Resolve(odds string) (bool, error) {
	p, err := Probability(odds)
	if err != nil {
		return false, err
	}
	if p >= 1.0 {
		return true, nil
	}
	if p <= 0.0 {
		return false, nil
	}
	return r.rng.Float64() < p, nil
}
