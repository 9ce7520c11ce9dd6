package crcsim

import "math"

// NextLesionOnset samples the next lesion-onset time by inverting the
// cumulative hazard against the incidence step function, modulated by the
// person's risk index. prevOnset is the time of the person's
// previous onset (0 at birth). Returns (onsetTime, true) if a further
// lesion occurs before expectedLifespan, or (0, false) ("no further
// lesion") if the curve is exhausted or the onset would fall beyond
// expectedLifespan.
func NextLesionOnset(incidence *StepFunction, riskIndex, prevOnset, expectedLifespan, u float64) (float64, bool) {
	targetArea := -math.Log(1-u) / riskIndex

	cumulativeArea := 0.0
	boxStart := prevOnset

	x := incidence.X()
	for {
		boxEndIndex := upperBound(x, boxStart)
		if boxEndIndex >= len(x) {
			return 0, false
		}
		boxEnd := x[boxEndIndex]
		boxHeight := incidence.MustAt(boxStart)
		boxArea := (boxEnd - boxStart) * boxHeight
		cumulativeArea += boxArea

		if cumulativeArea >= targetArea {
			excessArea := cumulativeArea - targetArea
			excessWidth := excessArea / boxHeight
			onset := boxEnd - excessWidth
			if onset <= expectedLifespan {
				return onset, true
			}
			return 0, false
		}
		boxStart = boxEnd
	}
}

// upperBound returns the index of the first element of x strictly greater
// than value (bisect.bisect_right).
func upperBound(x []float64, value float64) int {
	lo, hi := 0, len(x)
	for lo < hi {
		mid := (lo + hi) / 2
		if x[mid] <= value {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
