package crcsim

import "fmt"

// handleDiseaseMessage dispatches a disease-statechart message against the
// person's current aggregate disease state. This statechart mirrors
// the lesion statechart's own stage names one-for-one so the aggregate
// state is always traceable back to the lesion whose transition drove it.
func (p *Person) handleDiseaseMessage(message Tag) {
	old := p.DiseaseState

	switch p.DiseaseState {
	case DiseaseUninitialized:
		if message != DiseaseInit {
			panic(fmt.Errorf(UnexpectedMessageError, message, "disease", p.DiseaseState))
		}
		p.DiseaseState = DiseaseHealthy

	case DiseaseHealthy:
		switch message {
		case PolypOnset:
			p.DiseaseState = DiseaseSmallPolyp
		case OtherDeath, PolypectomyDeath:
			p.die(message)
			return
		default:
			return
		}

	case DiseaseSmallPolyp:
		switch message {
		case PolypMediumOnset:
			p.DiseaseState = DiseaseMediumPolyp
		case AllPolypsRemoved:
			p.DiseaseState = DiseaseHealthy
		case OtherDeath, PolypectomyDeath:
			p.die(message)
			return
		default:
			return
		}

	case DiseaseMediumPolyp:
		switch message {
		case PolypLargeOnset:
			p.DiseaseState = DiseaseLargePolyp
		case PreclinicalOnset:
			p.DiseaseState = DiseasePreclinicalStage1
		case AllPolypsRemoved:
			p.DiseaseState = DiseaseHealthy
		case OtherDeath, PolypectomyDeath:
			p.die(message)
			return
		default:
			return
		}

	case DiseaseLargePolyp:
		switch message {
		case PreclinicalOnset:
			p.DiseaseState = DiseasePreclinicalStage1
		case AllPolypsRemoved:
			p.DiseaseState = DiseaseHealthy
		case OtherDeath, PolypectomyDeath:
			p.die(message)
			return
		default:
			return
		}

	case DiseasePreclinicalStage1:
		p.handlePreclinical(message, old, DiseasePreclinicalStage2, DiseaseClinicalStage1, Pre2Onset, 1)
		return
	case DiseasePreclinicalStage2:
		p.handlePreclinical(message, old, DiseasePreclinicalStage3, DiseaseClinicalStage2, Pre3Onset, 2)
		return
	case DiseasePreclinicalStage3:
		p.handlePreclinical(message, old, DiseasePreclinicalStage4, DiseaseClinicalStage3, Pre4Onset, 3)
		return
	case DiseasePreclinicalStage4:
		p.handlePreclinical(message, old, 0, DiseaseClinicalStage4, 0, 4)
		return

	case DiseaseClinicalStage1, DiseaseClinicalStage2, DiseaseClinicalStage3, DiseaseClinicalStage4:
		switch message {
		case CRCDeath:
			stage := fmt.Sprintf("CLIN%d", p.StageAtDetection)
			p.die(message)
			p.log.AddTreatment(p.ID, p.sched.Time, RoleTerminal, stage)
			return
		case OtherDeath, PolypectomyDeath:
			p.die(message)
			return
		default:
			return
		}

	case DiseaseDead:
		return

	default:
		panic(fmt.Errorf(UnexpectedStateError, "disease", p.DiseaseState))
	}

	p.log.AddDiseaseStateChange(p.ID, message, p.sched.Time, old.String(), p.DiseaseState.String(), p.RoutineTest)
}

// handlePreclinical implements the shared PRECLINICAL_STAGE_k handling:
// progression to stage k+1, or clinical detection. onsetMsg/nextStage
// are unused on the PRECLINICAL_STAGE4 arm since there is no stage 5.
func (p *Person) handlePreclinical(message Tag, from, nextStage, clinicalStage DiseaseState, onsetMsg Tag, stage int) {
	switch message {
	case onsetMsg:
		if onsetMsg == 0 {
			return
		}
		p.DiseaseState = nextStage
		p.log.AddDiseaseStateChange(p.ID, message, p.sched.Time, from.String(), p.DiseaseState.String(), p.RoutineTest)
	case ClinicalOnset:
		p.DiseaseState = clinicalStage
		p.StageAtDetection = stage
		p.log.AddDiseaseStateChange(p.ID, message, p.sched.Time, from.String(), p.DiseaseState.String(), p.RoutineTest)
		p.detectOtherCancers()
		p.sched.Schedule(StartTreatment, p.handleTreatmentMessage, 0)
	case OtherDeath, PolypectomyDeath:
		p.die(message)
	default:
		return
	}
}

// die moves the disease statechart to its absorbing DEAD state and
// terminates the simulation: from any non-DEAD state, OTHER_DEATH,
// POLYPECTOMY_DEATH, or CRC_DEATH moves to DEAD and enqueues
// END_SIMULATION.
func (p *Person) die(message Tag) {
	old := p.DiseaseState
	p.DiseaseState = DiseaseDead
	p.log.AddDiseaseStateChange(p.ID, message, p.sched.Time, old.String(), p.DiseaseState.String(), p.RoutineTest)
	p.sched.Schedule(EndSimulation, func(Tag) {}, 0)
}

// detectOtherCancers drives every lesion still in a preclinical stage to
// CLINICAL_DETECTION when one lesion clinically surfaces, producing the
// clinical cascade: the workup that catches one cancer catches them all.
// Each dispatch is routed through the scheduler at zero delay rather than
// called directly, matching every other cross-statechart message in this
// codebase, so the cascade's ordering is observable and testable the same
// way any other same-tick event sequence is.
func (p *Person) detectOtherCancers() {
	for _, l := range p.Lesions {
		switch l.state {
		case LesionPreclinicalStage1, LesionPreclinicalStage2, LesionPreclinicalStage3, LesionPreclinicalStage4:
			p.sched.Schedule(ClinicalDetection, l.handleMessage, 0)
		}
	}
}
