package crcsim

import (
	"math/rand"

	rv "github.com/kentwait/randomvariate"
)

// RNG is the single pseudorandom source shared by an entire cohort run.
// Every stochastic draw anywhere in any Person's or Lesion's statecharts
// flows through it, consumed in cohort order, so that (seed, params,
// cohort) determines the simulation output deterministically.
//
// randomvariate's distribution functions (rv.Binomial, rv.Poisson, ...)
// draw from the package-level math/rand source rather than taking an
// explicit *rand.Rand. NewRNG seeds that global source once per run, and
// every named distribution reads from it afterward. A process that needs
// two independent, non-interleaved runs must not call NewRNG twice without
// a fresh process in between.
type RNG struct{}

// NewRNG seeds the shared source for a run.
func NewRNG(seed int64) *RNG {
	rand.Seed(seed)
	return &RNG{}
}

// Uniform draws a single value from Uniform[0, 1).
func (r *RNG) Uniform() float64 {
	return rv.Uniform(0, 1)
}

// Bernoulli reports true with probability p.
func (r *RNG) Bernoulli(p float64) bool {
	return rv.Binomial(1, p) == 1
}

// Exponential draws from an exponential distribution with the given mean
// (i.e. rate = 1/mean), the form every named-duration timer draw uses. A
// zero mean is a degenerate point mass at zero, for clinical-stage death
// timers with no survival delay.
func (r *RNG) Exponential(mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return rv.Exponential(1 / mean)
}

// Gamma draws from a Gamma(alpha, beta) distribution, used for the
// per-person lesion risk index.
func (r *RNG) Gamma(alpha, beta float64) float64 {
	return rv.Gamma(alpha, beta)
}
