package crcsim

import "fmt"

// LesionState is one lesion's stage in its progression statechart.
type LesionState int

const (
	LesionUninitialized LesionState = iota
	LesionSmallPolyp
	LesionMediumPolyp
	LesionLargePolyp
	LesionPreclinicalStage1
	LesionPreclinicalStage2
	LesionPreclinicalStage3
	LesionPreclinicalStage4
	LesionClinicalStage1
	LesionClinicalStage2
	LesionClinicalStage3
	LesionClinicalStage4
	LesionRemoved
	LesionDead
)

func (s LesionState) String() string {
	switch s {
	case LesionUninitialized:
		return "UNINITIALIZED"
	case LesionSmallPolyp:
		return "SMALL_POLYP"
	case LesionMediumPolyp:
		return "MEDIUM_POLYP"
	case LesionLargePolyp:
		return "LARGE_POLYP"
	case LesionPreclinicalStage1:
		return "PRECLINICAL_STAGE1"
	case LesionPreclinicalStage2:
		return "PRECLINICAL_STAGE2"
	case LesionPreclinicalStage3:
		return "PRECLINICAL_STAGE3"
	case LesionPreclinicalStage4:
		return "PRECLINICAL_STAGE4"
	case LesionClinicalStage1:
		return "CLINICAL_STAGE1"
	case LesionClinicalStage2:
		return "CLINICAL_STAGE2"
	case LesionClinicalStage3:
		return "CLINICAL_STAGE3"
	case LesionClinicalStage4:
		return "CLINICAL_STAGE4"
	case LesionRemoved:
		return "REMOVED"
	case LesionDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// nextLesionID is a process-wide monotonic counter for log readability. It
// does not affect behavior, only the ids that appear in the event log.
var nextLesionID int64

// Lesion is one pre-cancerous/cancerous lesion on a Person. Owned by
// the Person's lesion collection; its reference back to the Person is
// non-owning and used only to post messages or read read-only data.
type Lesion struct {
	ID     int64
	params *Parameters
	sched  *Scheduler
	person *Person
	rng    *RNG
	log    *EventLog

	state LesionState

	transitionTimeoutEvent *Event
	symptomsEvent          *Event
}

// NewLesion creates a lesion in UNINITIALIZED state and immediately drives
// it through its INIT transition.
func NewLesion(params *Parameters, sched *Scheduler, person *Person, rng *RNG, log *EventLog) *Lesion {
	l := &Lesion{
		ID:     nextLesionID,
		params: params,
		sched:  sched,
		person: person,
		rng:    rng,
		log:    log,
		state:  LesionUninitialized,
	}
	nextLesionID++
	l.handleMessage(LesionInit)
	return l
}

func (l *Lesion) writeStateChange(message Tag, oldState, newState LesionState) {
	l.log.AddLesionStateChange(l.person.ID, l.ID, message, l.sched.Time, oldState.String(), newState.String())
}

func (l *Lesion) allPolypsRemoved() bool {
	for _, other := range l.person.Lesions {
		if other.state != LesionRemoved {
			return false
		}
	}
	return true
}

// handleMessage dispatches message against the current state, following
// the progression transition table line for line.
func (l *Lesion) handleMessage(message Tag) {
	switch l.state {
	case LesionUninitialized:
		if message != LesionInit {
			panic(fmt.Errorf(UnexpectedMessageError, message, "lesion", l.state))
		}
		l.state = LesionSmallPolyp
		l.writeStateChange(message, LesionUninitialized, LesionSmallPolyp)
		l.sched.Schedule(PolypOnset, l.person.handleDiseaseMessage, 0)
		l.transitionTimeoutEvent = l.sched.Schedule(ProgressPolypStage, l.handleMessage,
			l.rng.Exponential(l.params.MeanDurationPolyp1Polyp2))

	case LesionSmallPolyp:
		switch message {
		case ProgressPolypStage:
			l.transitionTimeoutEvent.Enabled = false
			l.state = LesionMediumPolyp
			l.writeStateChange(message, LesionSmallPolyp, LesionMediumPolyp)
			l.sched.Schedule(PolypMediumOnset, l.person.handleDiseaseMessage, 0)

			dLarge := l.rng.Exponential(l.params.MeanDurationPolyp2Polyp3)
			dPre := l.rng.Exponential(l.params.MeanDurationPolyp2Pre)
			if dLarge < dPre {
				l.transitionTimeoutEvent = l.sched.Schedule(ProgressPolypStage, l.handleMessage, dLarge)
			} else {
				l.transitionTimeoutEvent = l.sched.Schedule(BecomeCancer, l.handleMessage, dPre)
			}
		case ClinicalDetection:
			l.transitionTimeoutEvent.Enabled = false
			l.state = LesionRemoved
			l.writeStateChange(message, LesionSmallPolyp, LesionRemoved)
			if l.allPolypsRemoved() {
				l.sched.Schedule(AllPolypsRemoved, l.person.handleDiseaseMessage, 0)
			}
		}

	case LesionMediumPolyp:
		switch message {
		case ProgressPolypStage:
			l.transitionTimeoutEvent.Enabled = false
			l.state = LesionLargePolyp
			l.writeStateChange(message, LesionMediumPolyp, LesionLargePolyp)
			l.sched.Schedule(PolypLargeOnset, l.person.handleDiseaseMessage, 0)
			l.transitionTimeoutEvent = l.sched.Schedule(BecomeCancer, l.handleMessage,
				l.rng.Exponential(l.params.MeanDurationPolyp3Pre))
		case BecomeCancer:
			l.enterPreclinicalStage1(message, LesionMediumPolyp)
		case ClinicalDetection:
			l.transitionTimeoutEvent.Enabled = false
			l.state = LesionRemoved
			l.writeStateChange(message, LesionMediumPolyp, LesionRemoved)
			if l.allPolypsRemoved() {
				l.sched.Schedule(AllPolypsRemoved, l.person.handleDiseaseMessage, 0)
			}
		}

	case LesionLargePolyp:
		switch message {
		case BecomeCancer:
			l.enterPreclinicalStage1(message, LesionLargePolyp)
		case ClinicalDetection:
			l.transitionTimeoutEvent.Enabled = false
			l.state = LesionRemoved
			l.writeStateChange(message, LesionLargePolyp, LesionRemoved)
			if l.allPolypsRemoved() {
				l.sched.Schedule(AllPolypsRemoved, l.person.handleDiseaseMessage, 0)
			}
		}

	case LesionPreclinicalStage1:
		l.handlePreclinical(message, LesionPreclinicalStage1, LesionPreclinicalStage2,
			LesionClinicalStage1, Pre2Onset, l.params.MeanDurationPre2Pre3, l.params.MeanDurationPre2Clin2,
			l.params.ProportionSurviveClin1, l.params.MeanDurationClin1Dead)
	case LesionPreclinicalStage2:
		l.handlePreclinical(message, LesionPreclinicalStage2, LesionPreclinicalStage3,
			LesionClinicalStage2, Pre3Onset, l.params.MeanDurationPre3Pre4, l.params.MeanDurationPre3Clin3,
			l.params.ProportionSurviveClin2, l.params.MeanDurationClin2Dead)
	case LesionPreclinicalStage3:
		l.handlePreclinicalStage3(message)
	case LesionPreclinicalStage4:
		l.handlePreclinicalStage4(message)

	case LesionClinicalStage1:
		l.handleClinical(message, LesionClinicalStage1)
	case LesionClinicalStage2:
		l.handleClinical(message, LesionClinicalStage2)
	case LesionClinicalStage3:
		l.handleClinical(message, LesionClinicalStage3)
	case LesionClinicalStage4:
		l.handleClinical(message, LesionClinicalStage4)

	case LesionRemoved, LesionDead:
		// absorbing: no-op

	default:
		panic(fmt.Errorf(UnexpectedStateError, "lesion", l.state))
	}
}

// enterPreclinicalStage1 implements the shared MEDIUM/LARGE_POLYP ->
// PRECLINICAL_STAGE1 transition.
func (l *Lesion) enterPreclinicalStage1(message Tag, from LesionState) {
	l.transitionTimeoutEvent.Enabled = false
	l.state = LesionPreclinicalStage1
	l.writeStateChange(message, from, LesionPreclinicalStage1)
	l.sched.Schedule(PreclinicalOnset, l.person.handleDiseaseMessage, 0)
	l.transitionTimeoutEvent = l.sched.Schedule(ProgressCancerStage, l.handleMessage,
		l.rng.Exponential(l.params.MeanDurationPre1Pre2))
	// Scheduled independently of the progression timer above: this is the
	// concurrent-timer idiom. Do not collapse into a competing
	// pair, the symptom message must still reach the Person statechart
	// even if progression fires first.
	l.symptomsEvent = l.sched.Schedule(Symptomatic, l.person.handleTestingMessage,
		l.rng.Exponential(l.params.MeanDurationPre1Clin1))
}

// handlePreclinical implements PRECLINICAL_STAGE{1,2} -> next stage or
// clinical detection, parameterized by the stage-specific means.
func (l *Lesion) handlePreclinical(message Tag, from, nextStage, clinicalStage LesionState,
	onsetMsg Tag, nextProgressMean, nextSymptomMean, surviveProp, deadMean float64) {
	switch message {
	case ProgressCancerStage:
		l.transitionTimeoutEvent.Enabled = false
		l.symptomsEvent.Enabled = false
		l.state = nextStage
		l.writeStateChange(message, from, nextStage)
		l.sched.Schedule(onsetMsg, l.person.handleDiseaseMessage, 0)
		l.transitionTimeoutEvent = l.sched.Schedule(ProgressCancerStage, l.handleMessage,
			l.rng.Exponential(nextProgressMean))
		l.symptomsEvent = l.sched.Schedule(Symptomatic, l.person.handleTestingMessage,
			l.rng.Exponential(nextSymptomMean))
	case ClinicalDetection:
		l.transitionTimeoutEvent.Enabled = false
		l.symptomsEvent.Enabled = false
		l.enterClinical(message, from, clinicalStage, surviveProp, deadMean)
	}
}

func (l *Lesion) handlePreclinicalStage3(message Tag) {
	switch message {
	case ProgressCancerStage:
		l.transitionTimeoutEvent.Enabled = false
		l.symptomsEvent.Enabled = false
		l.state = LesionPreclinicalStage4
		l.writeStateChange(message, LesionPreclinicalStage3, LesionPreclinicalStage4)
		l.sched.Schedule(Pre4Onset, l.person.handleDiseaseMessage, 0)
		l.symptomsEvent = l.sched.Schedule(Symptomatic, l.person.handleTestingMessage,
			l.rng.Exponential(l.params.MeanDurationPre4Clin4))
	case ClinicalDetection:
		l.transitionTimeoutEvent.Enabled = false
		l.symptomsEvent.Enabled = false
		l.enterClinical(message, LesionPreclinicalStage3, LesionClinicalStage3,
			l.params.ProportionSurviveClin3, l.params.MeanDurationClin3Dead)
	}
}

func (l *Lesion) handlePreclinicalStage4(message Tag) {
	if message != ClinicalDetection {
		return
	}
	l.symptomsEvent.Enabled = false
	l.enterClinical(message, LesionPreclinicalStage4, LesionClinicalStage4,
		l.params.ProportionSurviveClin4, l.params.MeanDurationClin4Dead)
}

// enterClinical implements every PRECLINICAL_STAGE_k -> CLINICAL_STAGE_k
// transition: emit CLINICAL_ONSET, then roll survival and schedule
// KILL_PERSON if the lesion proves fatal.
func (l *Lesion) enterClinical(message Tag, from, clinical LesionState, surviveProp, deadMean float64) {
	l.state = clinical
	l.writeStateChange(message, from, clinical)
	l.sched.Schedule(ClinicalOnset, l.person.handleDiseaseMessage, 0)
	if l.rng.Uniform() < surviveProp {
		return
	}
	l.transitionTimeoutEvent = l.sched.Schedule(KillPerson, l.handleMessage, l.rng.Exponential(deadMean))
}

func (l *Lesion) handleClinical(message Tag, from LesionState) {
	if message != KillPerson {
		return
	}
	l.transitionTimeoutEvent.Enabled = false
	l.state = LesionDead
	l.writeStateChange(message, from, LesionDead)
	l.sched.Schedule(CRCDeath, l.person.handleDiseaseMessage, 0)
}

// IsDetected rolls whether the named test detects this lesion, given its
// current state.
func (l *Lesion) IsDetected(test string) bool {
	if test == "" {
		return false
	}
	tp := l.params.Tests[test]

	switch l.state {
	case LesionSmallPolyp:
		return l.rng.Bernoulli(tp.SensitivityPolyp1)
	case LesionMediumPolyp:
		return l.rng.Bernoulli(tp.SensitivityPolyp2)
	case LesionLargePolyp:
		return l.rng.Bernoulli(tp.SensitivityPolyp3)
	case LesionPreclinicalStage1, LesionPreclinicalStage2, LesionPreclinicalStage3, LesionPreclinicalStage4:
		return l.rng.Bernoulli(tp.SensitivityCancer)
	case LesionClinicalStage1, LesionClinicalStage2, LesionClinicalStage3, LesionClinicalStage4:
		return true
	case LesionRemoved, LesionDead:
		return false
	default:
		panic(fmt.Errorf(UnexpectedStateError, "lesion", l.state))
	}
}
