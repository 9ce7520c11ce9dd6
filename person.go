package crcsim

// DiseaseState is the aggregate disease status a Person's own statechart
// tracks, independent of any one lesion's state. Mirrors
// PersonDiseaseState exactly: one state per polyp size and per
// preclinical/clinical cancer stage, so the aggregate is always reachable
// from a specific lesion-state change.
type DiseaseState int

const (
	DiseaseUninitialized DiseaseState = iota
	DiseaseHealthy
	DiseaseSmallPolyp
	DiseaseMediumPolyp
	DiseaseLargePolyp
	DiseasePreclinicalStage1
	DiseasePreclinicalStage2
	DiseasePreclinicalStage3
	DiseasePreclinicalStage4
	DiseaseClinicalStage1
	DiseaseClinicalStage2
	DiseaseClinicalStage3
	DiseaseClinicalStage4
	DiseaseDead
)

func (s DiseaseState) String() string {
	switch s {
	case DiseaseUninitialized:
		return "UNINITIALIZED"
	case DiseaseHealthy:
		return "HEALTHY"
	case DiseaseSmallPolyp:
		return "SMALL_POLYP"
	case DiseaseMediumPolyp:
		return "MEDIUM_POLYP"
	case DiseaseLargePolyp:
		return "LARGE_POLYP"
	case DiseasePreclinicalStage1:
		return "PRECLINICAL_STAGE1"
	case DiseasePreclinicalStage2:
		return "PRECLINICAL_STAGE2"
	case DiseasePreclinicalStage3:
		return "PRECLINICAL_STAGE3"
	case DiseasePreclinicalStage4:
		return "PRECLINICAL_STAGE4"
	case DiseaseClinicalStage1:
		return "CLINICAL_STAGE1"
	case DiseaseClinicalStage2:
		return "CLINICAL_STAGE2"
	case DiseaseClinicalStage3:
		return "CLINICAL_STAGE3"
	case DiseaseClinicalStage4:
		return "CLINICAL_STAGE4"
	case DiseaseDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// TestingState is the Person's testing-protocol statechart state.
type TestingState int

const (
	TestingUninitialized TestingState = iota
	TestingRoutine
	TestingDiagnostic
	TestingSkipTesting
	TestingSurveillance
	TestingDone
)

func (s TestingState) String() string {
	switch s {
	case TestingUninitialized:
		return "UNINITIALIZED"
	case TestingRoutine:
		return "ROUTINE"
	case TestingDiagnostic:
		return "DIAGNOSTIC"
	case TestingSkipTesting:
		return "SKIP_TESTING"
	case TestingSurveillance:
		return "SURVEILLANCE"
	case TestingDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// TreatmentState is the Person's treatment statechart state.
type TreatmentState int

const (
	TreatmentUninitialized TreatmentState = iota
	TreatmentNone
	TreatmentOngoing
)

func (s TreatmentState) String() string {
	switch s {
	case TreatmentUninitialized:
		return "UNINITIALIZED"
	case TreatmentNone:
		return "NO_TREATMENT"
	case TreatmentOngoing:
		return "TREATMENT"
	default:
		return "UNKNOWN"
	}
}

// Person is one simulated individual. It owns three parallel statecharts
// (disease, testing, treatment) plus a collection of Lesions, and is the
// sole point of contact between the Scheduler and an individual's domain
// logic.
type Person struct {
	ID            string
	Sex           Sex
	RaceEthnicity RaceEthnicity

	params *Parameters
	sched  *Scheduler
	rng    *RNG
	log    *EventLog

	ExpectedLifespan float64
	LesionRiskIndex  float64

	Lesions []*Lesion

	DiseaseState   DiseaseState
	TestingState   TestingState
	TreatmentState TreatmentState

	// Testing bookkeeping.
	NeverCompliant      bool
	RoutineTest         string
	RoutineIsDiagnostic bool
	// RoutineComplianceHistory is a single chronological sequence of
	// routine-compliance draws for this person, not keyed by test name:
	// the conditional-compliance rule looks only at the most recent
	// entry, regardless of which routine test produced it.
	RoutineComplianceHistory []bool
	OngoingTreatmentCount    int

	// StageAtDetection records the clinical stage (1-4) at which this
	// person's cancer was first clinically detected.
	StageAtDetection int

	// NumSurveillanceTestsSincePositive counts surveillance tests taken
	// since the most recent positive diagnostic/surveillance result,
	// driving the surveillance-frequency rule's cancer-track branch.
	NumSurveillanceTestsSincePositive int

	// PreviousTreatmentInitiationAge is the floor(age) at which the most
	// recent course of treatment began.
	PreviousTreatmentInitiationAge int

	// previousTestAge tracks, per test name, the age at which that test
	// was last administered, feeding both the routine-due gate and the
	// surveillance-frequency rule.
	previousTestAge map[string]int

	// previousTestSmall/Medium/Large tally, per test name, the detected
	// polyp counts by size from that test's most recent diagnostic/
	// surveillance administration to a person with active lesions
	// (negative results included), feeding the surveillance-frequency rule.
	previousTestSmall  map[string]int
	previousTestMedium map[string]int
	previousTestLarge  map[string]int

	ongoingTreatmentEvent *Event
	returnToRoutineEvent  *Event

	prevLesionOnset float64
}

// NewPerson constructs a Person with its drawn identity fixed, but does not
// yet start its statecharts; call Start to do that separately.
func NewPerson(id string, sex Sex, race RaceEthnicity, lifespan float64,
	params *Parameters, sched *Scheduler, rng *RNG, log *EventLog) *Person {
	return &Person{
		ID:                      id,
		Sex:                     sex,
		RaceEthnicity:           race,
		params:                  params,
		sched:                   sched,
		rng:                     rng,
		log:                     log,
		ExpectedLifespan:        lifespan,
		LesionRiskIndex:         rng.Gamma(params.LesionRiskAlpha, params.LesionRiskBeta),
		DiseaseState:       DiseaseUninitialized,
		TestingState:       TestingUninitialized,
		TreatmentState:     TreatmentUninitialized,
		previousTestAge:    make(map[string]int),
		previousTestSmall:  make(map[string]int),
		previousTestMedium: make(map[string]int),
		previousTestLarge:  make(map[string]int),
	}
}

// Start drives every statechart through its INIT transition, schedules the
// yearly-actions driver and the person's own life timer, and schedules the
// first lesion-creation event.
func (p *Person) Start() {
	p.log.AddLifespan(p.ID, p.ExpectedLifespan)

	p.NeverCompliant = p.rng.Bernoulli(p.params.NeverCompliantRate)
	p.RoutineTest = p.chooseRoutineTest()
	if p.RoutineTest != "" {
		p.log.AddTestChosen(p.ID, p.RoutineTest)
	}

	p.handleDiseaseMessage(DiseaseInit)
	p.handleTestingMessage(TestingInit)
	p.handleTreatmentMessage(TreatmentInit)

	p.sched.Schedule(YearlyActions, p.handleYearlyActions, 1)
	p.sched.Schedule(KillPerson, p.handleLifeTimer, p.ExpectedLifespan)
	p.scheduleNextLesion()
}

// handleLifeTimer fires OTHER_DEATH at the expected-lifespan timeout, unless
// the person has already died from CRC, in which case it returns without
// sending anything to the disease statechart.
func (p *Person) handleLifeTimer(message Tag) {
	if p.DiseaseState == DiseaseDead {
		return
	}
	p.handleDiseaseMessage(OtherDeath)
}

// scheduleNextLesion draws the next lesion onset and, if one occurs before
// the person's expected lifespan, schedules CREATE_LESION at that time.
func (p *Person) scheduleNextLesion() {
	onset, ok := NextLesionOnset(p.params.LesionIncidence, p.LesionRiskIndex, p.prevLesionOnset,
		p.ExpectedLifespan, p.rng.Uniform())
	if !ok {
		return
	}
	p.prevLesionOnset = onset
	p.sched.Schedule(CreateLesion, p.handleCreateLesion, onset-p.sched.Time)
}

// handleCreateLesion instantiates a new lesion (which drives its own INIT
// transition) and schedules the next one, matching handle_lesion_creation.
func (p *Person) handleCreateLesion(message Tag) {
	if p.DiseaseState == DiseaseDead {
		return
	}
	lesion := NewLesion(p.params, p.sched, p, p.rng, p.log)
	p.Lesions = append(p.Lesions, lesion)
	p.scheduleNextLesion()
}

// chooseRoutineTest picks the routine test this person will use for their
// entire simulated life, via a cumulative-proportion draw over the
// configured routine tests. Under the variable-routine-test
// schedule there is no per-person choice: everyone starts on the first
// year's scheduled test, which refreshVariableRoutineTest then refreshes
// (and re-logs) every subsequent year.
func (p *Person) chooseRoutineTest() string {
	if p.params.UseVariableRoutineTest {
		return p.params.RoutineTestByYear[0]
	}

	u := p.rng.Uniform()
	var cumulative float64
	for _, name := range p.params.RoutineTests {
		cumulative += p.params.Tests[name].Proportion
		if u < cumulative {
			return name
		}
	}
	return ""
}

// routineTestForYear resolves the routine test in effect for the given
// simulation year under the variable-routine-test schedule.
func (p *Person) routineTestForYear(year float64) string {
	name, err := p.params.VariableRoutineTest.At(year)
	if err != nil {
		panic(err)
	}
	return name
}

func (p *Person) currentAge() int {
	return int(p.sched.Time)
}

func (p *Person) activeLesions() []*Lesion {
	var out []*Lesion
	for _, l := range p.Lesions {
		if l.state != LesionRemoved && l.state != LesionDead {
			out = append(out, l)
		}
	}
	return out
}
