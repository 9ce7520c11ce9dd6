package crcsim

import "testing"

// memoryLogger is a DataLogger that keeps every record in memory, a sink
// a test can drive a Person through without touching disk.
type memoryLogger struct {
	records []EventRecord
}

func (m *memoryLogger) Open() error                    { return nil }
func (m *memoryLogger) WriteRecord(r EventRecord) error { m.records = append(m.records, r); return nil }
func (m *memoryLogger) Commit() error                   { return nil }
func (m *memoryLogger) Close() error                    { return nil }

func newTestLog(t *testing.T) (*EventLog, *memoryLogger) {
	t.Helper()
	ml := &memoryLogger{}
	log, err := NewEventLog(ml)
	if err != nil {
		t.Fatalf("cannot build test event log: %v", err)
	}
	return log, ml
}

// testParams returns a not-yet-validated Parameters bundle (callers run
// Validate, which builds the step functions) with two tests
// ("fobt" as the sole routine test, "colo" as both the diagnostic and
// surveillance test) and compliance/survival rates pinned to make a
// person's path through the statecharts deterministic: every compliance
// roll succeeds, nobody ever dies of anything but disease progression
// unless a test explicitly dials ProportionSurviveClinN down.
func testParams() *Parameters {
	p := &Parameters{MaxAge: 100}
	flat := func(rate float64) ([]float64, []float64) {
		return []float64{0, 100}, []float64{rate, rate}
	}
	p.LesionIncidenceAges, p.LesionIncidenceRates = flat(0.02)
	p.DeathRateWhiteFemaleAges, p.DeathRateWhiteFemaleRates = flat(0.01)
	p.DeathRateBlackFemaleAges, p.DeathRateBlackFemaleRates = flat(0.01)
	p.DeathRateWhiteMaleAges, p.DeathRateWhiteMaleRates = flat(0.01)
	p.DeathRateBlackMaleAges, p.DeathRateBlackMaleRates = flat(0.01)

	p.Tests = map[string]TestParams{
		"fobt": {
			Proportion:            1,
			SensitivityPolyp1:     0.1,
			SensitivityPolyp2:     0.2,
			SensitivityPolyp3:     0.3,
			SensitivityCancer:     0.9,
			Specificity:           0.9,
			RoutineStart:          50,
			RoutineEnd:            80,
			RoutineFreq:           1,
			ProportionPerforation: 0,
		},
		"colo": {
			SensitivityPolyp1:     0.8,
			SensitivityPolyp2:     0.9,
			SensitivityPolyp3:     0.95,
			SensitivityCancer:     0.95,
			Specificity:           0.9,
			RoutineStart:          50,
			RoutineEnd:            80,
			RoutineFreq:           10,
			ProportionPerforation: 0,
		},
	}
	p.DiagnosticTest = "colo"
	p.SurveillanceTest = "colo"
	p.RoutineTests = []string{"fobt"}

	p.InitialComplianceRate = 1
	p.DiagnosticComplianceRate = 1
	p.SurveillanceComplianceRate = 1
	p.NeverCompliantRate = 0
	p.UseConditionalCompliance = false

	p.PolypectomyProportionLethal = 0

	p.MeanDurationPolyp1Polyp2 = 5
	p.MeanDurationPolyp2Polyp3 = 5
	p.MeanDurationPolyp2Pre = 20
	p.MeanDurationPolyp3Pre = 20
	p.MeanDurationPre1Pre2 = 2
	p.MeanDurationPre2Pre3 = 2
	p.MeanDurationPre3Pre4 = 2
	p.MeanDurationPre1Clin1 = 5
	p.MeanDurationPre2Clin2 = 5
	p.MeanDurationPre3Clin3 = 5
	p.MeanDurationPre4Clin4 = 5
	p.MeanDurationClin1Dead = 5
	p.MeanDurationClin2Dead = 5
	p.MeanDurationClin3Dead = 5
	p.MeanDurationClin4Dead = 5

	p.ProportionSurviveClin1 = 1
	p.ProportionSurviveClin2 = 1
	p.ProportionSurviveClin3 = 1
	p.ProportionSurviveClin4 = 1

	p.SurveillanceFreqPolypNone = 10
	p.SurveillanceFreqPolypMild = 5
	p.SurveillanceFreqPolypModerate = 3
	p.SurveillanceFreqPolypSevere = 1
	p.SurveillanceFreqCancerFirst = 1
	p.SurveillanceFreqCancerSecond = 1
	p.SurveillanceFreqCancerRest = 1
	p.SurveillanceEndAge = 85

	p.DurationScreenSkipTesting = 5
	p.MaxOngoingTreatments = 2

	return p
}

func newTestPerson(t *testing.T, params *Parameters, seed int64) (*Person, *Scheduler, *memoryLogger) {
	t.Helper()
	if !params.validated {
		if err := params.Validate(); err != nil {
			t.Fatalf("cannot validate test parameters: %v", err)
		}
	}
	log, ml := newTestLog(t)
	sched := NewScheduler()
	rng := NewRNG(seed)
	person := NewPerson("test-person", Male, WhiteNonHispanic, float64(params.MaxAge), params, sched, rng, log)
	return person, sched, ml
}

// runScheduler drains sched until empty or END_SIMULATION, mirroring
// runOne's event loop without the panic-recovery wrapper, so a test
// failure surfaces as a normal panic instead of being swallowed.
func runScheduler(sched *Scheduler) {
	for !sched.IsEmpty() {
		ev := sched.ConsumeNext()
		if !ev.Enabled {
			continue
		}
		if ev.Message == EndSimulation {
			return
		}
		ev.Handler(ev.Message)
	}
}

// drainAtCurrentTime runs only the events already due at sched.Time
// (the zero-delay cross-statechart messages a handler just enqueued),
// leaving any future-dated timer events queued. This lets a test drive
// one lesion/person transition at a time without a random-duration
// timer firing ahead of schedule.
func drainAtCurrentTime(sched *Scheduler) {
	for len(sched.queue) > 0 && sched.queue[0].Time <= sched.Time {
		ev := sched.ConsumeNext()
		if !ev.Enabled {
			continue
		}
		if ev.Message == EndSimulation {
			return
		}
		ev.Handler(ev.Message)
	}
}
