package crcsim

import "fmt"

// handleTreatmentMessage dispatches a treatment-statechart message.
// Treatment here models only the bookkeeping the rest of the simulation
// depends on: whether a person is currently under active cancer care, for
// however many years max_ongoing_treatments says a course of treatment
// lasts. It does not model treatment modality or efficacy; survival is
// already resolved by the lesion statechart's clinical-stage mortality
// draw.
func (p *Person) handleTreatmentMessage(message Tag) {
	switch p.TreatmentState {
	case TreatmentUninitialized:
		if message != TreatmentInit {
			panic(fmt.Errorf(UnexpectedMessageError, message, "treatment", p.TreatmentState))
		}
		p.TreatmentState = TreatmentNone

	case TreatmentNone:
		if message != StartTreatment {
			return
		}
		p.startTreatment()

	case TreatmentOngoing:
		switch message {
		case StartTreatment:
			// A further cancer found while already in treatment disables
			// the stale ongoing-treatment timer and restarts the clock:
			// disable the previous timer, then redo the startTreatment
			// side effects as if entering fresh.
			if p.ongoingTreatmentEvent != nil {
				p.ongoingTreatmentEvent.Enabled = false
			}
			p.startTreatment()
		case OngoingTreatment:
			p.handleOngoingTreatment()
		}

	default:
		panic(fmt.Errorf(UnexpectedStateError, "treatment", p.TreatmentState))
	}
}

// startTreatment logs an INITIAL treatment record, records the treatment-
// initiation age, and schedules the first ongoing-treatment timer.
func (p *Person) startTreatment() {
	p.TreatmentState = TreatmentOngoing
	p.OngoingTreatmentCount = 0
	p.PreviousTreatmentInitiationAge = p.currentAge()
	p.log.AddTreatment(p.ID, p.sched.Time, RoleInitial, fmt.Sprintf("CLIN%d", p.StageAtDetection))
	p.ongoingTreatmentEvent = p.sched.Schedule(OngoingTreatment, p.handleTreatmentMessage, 1)
}

// handleOngoingTreatment advances the treatment-duration counter each
// simulated year, logging every year including the last, and stops
// rescheduling once max_ongoing_treatments is reached. Treatment never
// transitions to any other state afterward: a person who survives their
// cancer simply stops receiving further treatment records.
func (p *Person) handleOngoingTreatment() {
	p.OngoingTreatmentCount++
	p.log.AddTreatment(p.ID, p.sched.Time, RoleOngoing, fmt.Sprintf("CLIN%d", p.StageAtDetection))
	if p.OngoingTreatmentCount < p.params.MaxOngoingTreatments {
		p.ongoingTreatmentEvent = p.sched.Schedule(OngoingTreatment, p.handleTreatmentMessage, 1)
	}
}
