package crcsim

import (
	"errors"
	"fmt"
)

// RunCohort drives an entire cohort through the simulation, one individual
// at a time. Lifespans for every cohort member are sampled up front from
// the single shared random source, before any individual's own simulation
// begins, so the state of that source during lifespan sampling never
// depends on how many draws a prior individual's simulation consumed, a
// per-cohort determinism constraint. Per-individual simulations are
// independent and
// share nothing but the random source and the log, so a caller wanting
// parallelism would need to split the cohort across distinct (seed, log)
// pairs rather than calling RunCohort concurrently on overlapping slices.
//
// A contract violation in one individual's simulation is isolated to that
// individual: runOne recovers the panic, the rest of the cohort still runs,
// and every such failure is accumulated into the returned error so the
// caller learns about all of them rather than only the first.
func RunCohort(params *Parameters, cohort []CohortRow, seed int64, log *EventLog) error {
	rng := NewRNG(seed)

	lifespans := make([]float64, len(cohort))
	for i, row := range cohort {
		lifespan, err := SampleLifespan(params, row.Sex, row.RaceEthnicity, rng.Uniform())
		if err != nil {
			return err
		}
		lifespans[i] = lifespan
	}

	var errs []error
	for i, row := range cohort {
		if err := runOne(params, row, lifespans[i], rng, log); err != nil {
			errs = append(errs, fmt.Errorf("individual %s: %w", row.ID, err))
		}
		if err := log.Commit(); err != nil {
			return err
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// runOne simulates a single individual to completion: construct the
// person, start its statecharts, then drain its scheduler until
// END_SIMULATION or the queue empties. A contract violation panics
// from deep inside a handler; that panic is isolated to this individual
// and converted to an error so the rest of the cohort is unaffected.
func runOne(params *Parameters, row CohortRow, lifespan float64, rng *RNG, log *EventLog) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	sched := NewScheduler()
	person := NewPerson(row.ID, row.Sex, row.RaceEthnicity, lifespan, params, sched, rng, log)
	person.Start()

	for !sched.IsEmpty() {
		ev := sched.ConsumeNext()
		if !ev.Enabled {
			continue
		}
		if ev.Message == EndSimulation {
			break
		}
		ev.Handler(ev.Message)
	}
	return nil
}
