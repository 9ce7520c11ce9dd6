package crcsim

import (
	"fmt"
	"sort"
)

// StepFunction is a piecewise-constant numerical function: f(q) is the y
// value at the greatest defined x <= q. Used for incidence curves and
// mortality tables; the year->routine-test mapping uses
// StringStepFunction instead.
type StepFunction struct {
	x []float64
	y []float64
}

// NewStepFunction validates x and y eagerly: equal length, x sorted
// ascending (non-decreasing, so repeated knots are tolerated).
func NewStepFunction(x, y []float64) (*StepFunction, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf(StepFunctionLengthError, len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			return nil, fmt.Errorf(StepFunctionSortError)
		}
	}
	return &StepFunction{x: append([]float64(nil), x...), y: append([]float64(nil), y...)}, nil
}

// At evaluates the step function at value. Fails if value is smaller than
// the smallest defined x.
func (f *StepFunction) At(value float64) (float64, error) {
	// i is the count of x[k] <= value; the greatest defined x <= value sits
	// at index i-1. sort.Search finds the first index where x[k] > value.
	i := sort.Search(len(f.x), func(k int) bool { return f.x[k] > value }) - 1
	if i < 0 {
		return 0, fmt.Errorf(StepFunctionDomainError, value)
	}
	return f.y[i], nil
}

// MustAt panics on out-of-domain queries; used where the caller has
// already established the domain covers the query (e.g. incidence walks
// that start at a known prior onset).
func (f *StepFunction) MustAt(value float64) float64 {
	v, err := f.At(value)
	if err != nil {
		panic(err)
	}
	return v
}

// X returns the knot locations, read-only.
func (f *StepFunction) X() []float64 { return f.x }

// Y returns the knot values, read-only.
func (f *StepFunction) Y() []float64 { return f.y }
