package crcsim

import "fmt"

// handleTestingMessage dispatches a testing-statechart message. This
// statechart owns the entire screening/diagnosis/surveillance protocol: it
// decides, once a year and whenever a lesion reports symptoms, whether and
// which test this person receives, and reacts to that test's outcome.
// Transitions among {ROUTINE, DIAGNOSTIC, SKIP_TESTING, SURVEILLANCE} carry
// no record_type of their own; only the test_performed/test_chosen/
// pathology/polypectomy/perforation/noncompliance records they trigger are
// logged.
func (p *Person) handleTestingMessage(message Tag) {
	switch p.TestingState {
	case TestingUninitialized:
		if message != TestingInit {
			panic(fmt.Errorf(UnexpectedMessageError, message, "testing", p.TestingState))
		}
		p.TestingState = TestingRoutine
		return

	case TestingRoutine:
		switch message {
		case Symptomatic, ScreenPositive:
			p.enterDiagnostic(message)
		case RoutineIsDiagnostic:
			p.RoutineIsDiagnostic = true
			p.enterDiagnostic(message)
		}

	case TestingDiagnostic:
		switch message {
		case NotCompliant:
			// Clear routine_is_diagnostic and return straight to ROUTINE,
			// no skip-testing timer.
			p.RoutineIsDiagnostic = false
			p.TestingState = TestingRoutine
		case Negative:
			p.RoutineIsDiagnostic = false
			p.enterSkipTesting()
		case PositivePolyp:
			p.RoutineIsDiagnostic = false
			p.enterSurveillance()
		case PositiveCancer:
			p.RoutineIsDiagnostic = false
			p.enterSurveillance()
		}

	case TestingSkipTesting:
		switch message {
		case ReturnToRoutine:
			p.TestingState = TestingRoutine
		case Symptomatic:
			if p.returnToRoutineEvent != nil {
				p.returnToRoutineEvent.Enabled = false
			}
			p.enterDiagnostic(message)
		}

	case TestingSurveillance:
		switch message {
		case Symptomatic:
			p.TestingState = TestingSurveillance
			p.testSurveillance(true)
		case PositivePolyp:
			p.enterSurveillance()
		case PositiveCancer:
			p.enterSurveillance()
			// Even though the person is already in surveillance for a
			// prior positive, a newly detected cancer restarts the
			// treatment protocol explicitly here, redundant with
			// whatever the lesion's own clinical-detection cascade
			// already enqueued on the disease statechart.
			p.sched.Schedule(StartTreatment, p.handleTreatmentMessage, 0)
		}

	case TestingDone:
		return

	default:
		panic(fmt.Errorf(UnexpectedStateError, "testing", p.TestingState))
	}
}

func (p *Person) enterDiagnostic(message Tag) {
	p.TestingState = TestingDiagnostic
	p.testDiagnostic(message == Symptomatic)
}

// enterSurveillance resets the post-positive surveillance counter,
// unconditionally, even when re-entering SURVEILLANCE from an existing
// post-treatment track.
func (p *Person) enterSurveillance() {
	p.TestingState = TestingSurveillance
	p.NumSurveillanceTestsSincePositive = 0
}

// enterSkipTesting implements DIAGNOSTIC + NEGATIVE -> SKIP_TESTING:
// schedule the delayed return to routine screening, matching
// duration_screen_skip_testing.
func (p *Person) enterSkipTesting() {
	p.TestingState = TestingSkipTesting
	p.returnToRoutineEvent = p.sched.Schedule(ReturnToRoutine, p.handleTestingMessage, p.params.DurationScreenSkipTesting)
}

// handleYearlyActions is the person's annual timer, independent of the
// testing statechart's own state: it always reschedules itself, whatever
// state testing is in. It is scheduled once from Start and never routed
// through handleTestingMessage.
func (p *Person) handleYearlyActions(message Tag) {
	p.refreshVariableRoutineTest()
	p.doTests()
	p.sched.Schedule(YearlyActions, p.handleYearlyActions, 1)
}

// refreshVariableRoutineTest re-resolves and re-logs the routine test in
// effect this year under the variable-routine-test schedule, once the
// simulation clock has entered that schedule's domain.
func (p *Person) refreshVariableRoutineTest() {
	if !p.params.UseVariableRoutineTest {
		return
	}
	years := p.params.RoutineTestingYear
	if p.sched.Time < years[0] || p.sched.Time > years[len(years)-1] {
		return
	}
	p.RoutineTest = p.routineTestForYear(p.sched.Time)
	p.log.AddTestChosen(p.ID, p.RoutineTest)
}

// doTests is the annual driver: it decides, for the person's current
// testing state, whether a test is due this year and if so administers it.
func (p *Person) doTests() {
	switch p.TestingState {
	case TestingRoutine:
		p.doRoutineTestIfDue()
	case TestingSurveillance:
		p.doSurveillanceTestIfDue()
	}
}

// routineDue reports whether the person is due for a routine test this
// year: skip if ANY routine test they've previously taken (not just the
// one they're about to take) was taken more recently than its own
// routine_freq allows.
func (p *Person) routineDue(age int) bool {
	for _, name := range p.params.RoutineTests {
		lastAge, taken := p.previousTestAge[name]
		if !taken {
			continue
		}
		if age-lastAge < p.params.Tests[name].RoutineFreq {
			return false
		}
	}
	return true
}

func (p *Person) doRoutineTestIfDue() {
	test := p.RoutineTest
	if test == "" {
		return
	}
	tp := p.params.Tests[test]
	age := p.currentAge()
	if age < tp.RoutineStart || age > tp.RoutineEnd {
		return
	}
	if !p.routineDue(age) {
		return
	}
	p.testRoutine(test)
}

func (p *Person) doSurveillanceTestIfDue() {
	if p.currentAge() > p.params.SurveillanceEndAge {
		return
	}
	previousAge, freq := p.surveillanceDueBasis()
	if p.currentAge()-previousAge >= freq {
		p.testSurveillance(false)
	}
}

// surveillanceDueBasis returns both the age the frequency rule measures
// elapsed time from and the year gap until the next test is due. A
// person already past treatment initiation is on the post-cancer track,
// keyed by how many surveillance tests have been taken since the most
// recent positive result; everyone else is on the regular post-polypectomy track, keyed by
// the polyp burden found at whichever of the diagnostic/surveillance test
// was most recently administered.
func (p *Person) surveillanceDueBasis() (previousAge, freq int) {
	if p.TreatmentState == TreatmentOngoing {
		survAge, ok := p.previousTestAge[p.params.SurveillanceTest]
		previousAge = p.PreviousTreatmentInitiationAge
		if ok && survAge > previousAge {
			previousAge = survAge
		}
		switch p.NumSurveillanceTestsSincePositive {
		case 0:
			freq = p.params.SurveillanceFreqCancerFirst
		case 1:
			freq = p.params.SurveillanceFreqCancerSecond
		default:
			freq = p.params.SurveillanceFreqCancerRest
		}
		return previousAge, freq
	}

	test := p.mostRecentPolypTest()
	previousAge = p.previousTestAge[test]
	small, medium, large := p.previousPolypCounts(test)
	switch {
	case small+medium+large == 0:
		freq = p.params.SurveillanceFreqPolypNone
	case small+medium <= 2 && large == 0:
		freq = p.params.SurveillanceFreqPolypMild
	case small+medium+large <= 10:
		freq = p.params.SurveillanceFreqPolypModerate
	default:
		freq = p.params.SurveillanceFreqPolypSevere
	}
	return previousAge, freq
}

// mostRecentPolypTest names whichever of the diagnostic/surveillance test
// was administered more recently, defaulting to the diagnostic test
// (guaranteed set, since reaching SURVEILLANCE always follows a positive
// diagnostic test) when no surveillance test has run yet.
func (p *Person) mostRecentPolypTest() string {
	diagAge := p.previousTestAge[p.params.DiagnosticTest]
	survAge, ok := p.previousTestAge[p.params.SurveillanceTest]
	if ok && survAge >= diagAge {
		return p.params.SurveillanceTest
	}
	return p.params.DiagnosticTest
}

func (p *Person) previousPolypCounts(test string) (small, medium, large int) {
	return p.previousTestSmall[test], p.previousTestMedium[test], p.previousTestLarge[test]
}

// isCompliant rolls whether the person accepts the given test this
// encounter. Which branch applies is keyed by the person's current
// testing state, not by the test name: DIAGNOSTIC (not itself standing
// in for a routine test) uses the flat diagnostic rate, SURVEILLANCE uses
// the flat surveillance rate, and ROUTINE (or a DIAGNOSTIC encounter that
// is itself the routine test) uses either a flat initial-compliance rate
// or, under use_conditional_compliance once the person has a compliance
// history, a rate indexed by age-since-routine-start and keyed on
// whether their single most recent routine draw was itself compliant.
func (p *Person) isCompliant(test string) bool {
	if test == "" {
		return false
	}

	switch {
	case p.TestingState == TestingDiagnostic && !p.RoutineIsDiagnostic:
		return p.rng.Bernoulli(p.params.DiagnosticComplianceRate)
	case p.TestingState == TestingSurveillance:
		return p.rng.Bernoulli(p.params.SurveillanceComplianceRate)
	case p.TestingState == TestingRoutine || (p.TestingState == TestingDiagnostic && p.RoutineIsDiagnostic):
		return p.rollRoutineCompliance()
	default:
		panic(fmt.Errorf(UnexpectedStateError, "testing", p.TestingState))
	}
}

// rollRoutineCompliance implements the ROUTINE branch of is_compliant.
func (p *Person) rollRoutineCompliance() bool {
	var rate float64
	switch {
	case p.NeverCompliant:
		rate = 0
	case !p.params.UseConditionalCompliance || len(p.RoutineComplianceHistory) == 0:
		rate = p.params.InitialComplianceRate
		if p.params.NeverCompliantRate < 1 {
			rate = rate / (1 - p.params.NeverCompliantRate)
			if rate > 1 {
				rate = 1
			}
		} else {
			rate = 0
		}
	default:
		tp := p.params.Tests[p.RoutineTest]
		idx := p.currentAge() - tp.RoutineStart
		rates := tp.CompliancePrevNotCompliant
		if p.RoutineComplianceHistory[len(p.RoutineComplianceHistory)-1] {
			rates = tp.CompliancePrevCompliant
		}
		rate = rates[idx]
	}

	compliant := p.rng.Bernoulli(rate)
	p.RoutineComplianceHistory = append(p.RoutineComplianceHistory, compliant)
	return compliant
}

// isFalsePositive rolls a false-positive screen for a person with no
// detectable lesion of the kind the test targets, driven by the test's
// specificity.
func (p *Person) isFalsePositive(test string) bool {
	return !p.rng.Bernoulli(p.params.Tests[test].Specificity)
}

// testRoutine administers the person's chosen routine test. Unlike
// test_diagnostic, a non-diagnostic routine test only ever yields
// positive/negative, with no pathology/polypectomy distinction: that
// bookkeeping belongs to the diagnostic workup a positive routine screen
// triggers next. A compliant test always rolls the perforation risk,
// independent of the test's positive/negative outcome.
func (p *Person) testRoutine(test string) {
	if test == p.params.DiagnosticTest {
		p.sched.Schedule(RoutineIsDiagnostic, p.handleTestingMessage, 0)
		return
	}

	if !p.isCompliant(test) {
		p.log.AddNoncompliance(p.ID, p.sched.Time, test, RoleRoutine)
		return
	}

	tp := p.params.Tests[test]
	p.log.AddTest(p.ID, p.sched.Time, test, RoleRoutine, "")
	p.previousTestAge[test] = p.currentAge()

	if len(p.activeLesions()) == 0 {
		if p.isFalsePositive(test) {
			p.sched.Schedule(ScreenPositive, p.handleTestingMessage, 0)
		}
	} else {
		for _, l := range p.activeLesions() {
			if l.IsDetected(test) {
				p.sched.Schedule(ScreenPositive, p.handleTestingMessage, 0)
				break
			}
		}
	}

	if p.rng.Bernoulli(tp.ProportionPerforation) {
		p.log.AddPerforation(p.ID, p.sched.Time, test, RoleRoutine, p.RoutineTest)
	}
}

// testDiagnostic administers the diagnostic test, either because a lesion
// became symptomatic or because a routine screen came back positive.
// Noncompliance here is a dead end that returns the person to
// routine screening rather than retrying, unless the encounter is itself
// symptomatic (which always proceeds regardless of compliance).
func (p *Person) testDiagnostic(symptomatic bool) {
	test := p.params.DiagnosticTest
	role := RoleDiagnostic
	if p.RoutineIsDiagnostic {
		role = RoleRoutine
	}

	if !symptomatic && !p.isCompliant(test) {
		p.sched.Schedule(NotCompliant, p.handleTestingMessage, 0)
		p.log.AddNoncompliance(p.ID, p.sched.Time, test, role)
		return
	}

	tp := p.params.Tests[test]
	p.log.AddTest(p.ID, p.sched.Time, test, role, "")
	p.previousTestAge[test] = p.currentAge()

	lethal := p.runFullTest(test, role)
	if lethal {
		return
	}

	if p.rng.Bernoulli(tp.ProportionPerforation) {
		p.log.AddPerforation(p.ID, p.sched.Time, test, role, p.RoutineTest)
	}
}

// testSurveillance administers the surveillance test for a person already
// in a post-polypectomy or post-treatment monitoring track. Lesions that
// have already progressed to a clinical stage are skipped silently: they
// were (or will be) caught by symptoms, not by this test.
func (p *Person) testSurveillance(symptomatic bool) {
	test := p.params.SurveillanceTest
	if !symptomatic && !p.isCompliant(test) {
		p.sched.Schedule(NotCompliant, p.handleTestingMessage, 0)
		p.log.AddNoncompliance(p.ID, p.sched.Time, test, RoleSurveillance)
		return
	}

	tp := p.params.Tests[test]
	p.log.AddTest(p.ID, p.sched.Time, test, RoleSurveillance, "")
	p.NumSurveillanceTestsSincePositive++
	p.previousTestAge[test] = p.currentAge()

	lethal := p.runFullTest(test, RoleSurveillance)
	if lethal {
		return
	}

	if p.rng.Bernoulli(tp.ProportionPerforation) {
		p.log.AddPerforation(p.ID, p.sched.Time, test, RoleSurveillance, p.RoutineTest)
	}
}

// runFullTest applies the diagnostic/surveillance test protocol: a false
// positive workup on a lesion-free person, or a per-lesion detection roll
// (already-clinical lesions silently skipped) that tallies detected
// polyps by size, drives every detected lesion to CLINICAL_DETECTION, and
// schedules the resulting NEGATIVE/POSITIVE_POLYP/POSITIVE_CANCER
// message. Reports true if a lethal polypectomy complication ended the
// person's simulation, in which case the caller must stop immediately
// without rolling the separate perforation check.
func (p *Person) runFullTest(test string, role Role) (lethal bool) {
	if len(p.activeLesions()) == 0 {
		if p.isFalsePositive(test) {
			p.log.AddPathology(p.ID, -1, p.sched.Time, test, role, "")
			p.log.AddPolypectomy(p.ID, p.sched.Time, test, role)
			if p.rng.Bernoulli(p.params.PolypectomyProportionLethal) {
				p.die(PolypectomyDeath)
				return true
			}
		}
		p.sched.Schedule(Negative, p.handleTestingMessage, 0)
		return false
	}

	var numDetected, numPolyps, small, medium, large, numCancer int
	for _, l := range p.activeLesions() {
		if l.state >= LesionClinicalStage1 {
			continue
		}
		if !l.IsDetected(test) {
			continue
		}
		numDetected++
		switch l.state {
		case LesionSmallPolyp:
			numPolyps++
			small++
			p.log.AddPathology(p.ID, l.ID, p.sched.Time, test, role, l.state.String())
		case LesionMediumPolyp:
			numPolyps++
			medium++
			p.log.AddPathology(p.ID, l.ID, p.sched.Time, test, role, l.state.String())
		case LesionLargePolyp:
			numPolyps++
			large++
			p.log.AddPathology(p.ID, l.ID, p.sched.Time, test, role, l.state.String())
		default:
			numCancer++
		}
		p.sched.Schedule(ClinicalDetection, l.handleMessage, 0)
	}

	if numPolyps > 0 {
		p.log.AddPolypectomy(p.ID, p.sched.Time, test, role)
		if p.rng.Bernoulli(p.params.PolypectomyProportionLethal) {
			p.die(PolypectomyDeath)
			return true
		}
	}

	p.previousTestSmall[test] = small
	p.previousTestMedium[test] = medium
	p.previousTestLarge[test] = large

	switch {
	case numDetected == 0:
		p.sched.Schedule(Negative, p.handleTestingMessage, 0)
	case numCancer > 0:
		p.sched.Schedule(PositiveCancer, p.handleTestingMessage, 0)
	default:
		p.sched.Schedule(PositivePolyp, p.handleTestingMessage, 0)
	}
	return false
}
