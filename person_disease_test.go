package crcsim

import "testing"

// newBareDiseasePerson builds a Person with only the disease statechart
// initialized, bypassing Start()'s lesion/testing/treatment scheduling so
// these tests exercise handleDiseaseMessage in isolation.
func newBareDiseasePerson(t *testing.T) *Person {
	t.Helper()
	params := testParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("cannot validate test parameters: %v", err)
	}
	log, _ := newTestLog(t)
	sched := NewScheduler()
	rng := NewRNG(1)
	p := NewPerson("disease-test", Male, WhiteNonHispanic, 90, params, sched, rng, log)
	p.handleDiseaseMessage(DiseaseInit)
	return p
}

func TestDiseaseStatechart_InitEntersHealthy(t *testing.T) {
	p := newBareDiseasePerson(t)
	if p.DiseaseState != DiseaseHealthy {
		t.Errorf("disease state = %v, want HEALTHY", p.DiseaseState)
	}
}

func TestDiseaseStatechart_PolypSizeProgression(t *testing.T) {
	p := newBareDiseasePerson(t)

	p.handleDiseaseMessage(PolypOnset)
	if p.DiseaseState != DiseaseSmallPolyp {
		t.Fatalf("after PolypOnset: %v, want SMALL_POLYP", p.DiseaseState)
	}

	p.handleDiseaseMessage(PolypMediumOnset)
	if p.DiseaseState != DiseaseMediumPolyp {
		t.Fatalf("after PolypMediumOnset: %v, want MEDIUM_POLYP", p.DiseaseState)
	}

	p.handleDiseaseMessage(PolypLargeOnset)
	if p.DiseaseState != DiseaseLargePolyp {
		t.Fatalf("after PolypLargeOnset: %v, want LARGE_POLYP", p.DiseaseState)
	}

	p.handleDiseaseMessage(PreclinicalOnset)
	if p.DiseaseState != DiseasePreclinicalStage1 {
		t.Fatalf("after PreclinicalOnset: %v, want PRECLINICAL_STAGE1", p.DiseaseState)
	}
}

func TestDiseaseStatechart_AllPolypsRemovedReturnsToHealthy(t *testing.T) {
	p := newBareDiseasePerson(t)
	p.handleDiseaseMessage(PolypOnset)
	p.handleDiseaseMessage(AllPolypsRemoved)
	if p.DiseaseState != DiseaseHealthy {
		t.Errorf("disease state = %v, want HEALTHY after AllPolypsRemoved", p.DiseaseState)
	}
}

func TestDiseaseStatechart_PreclinicalCascadeToClinical(t *testing.T) {
	p := newBareDiseasePerson(t)
	p.handleDiseaseMessage(PolypOnset)
	p.handleDiseaseMessage(PolypMediumOnset)
	p.handleDiseaseMessage(PolypLargeOnset)
	p.handleDiseaseMessage(PreclinicalOnset)
	p.handleDiseaseMessage(Pre2Onset)
	p.handleDiseaseMessage(Pre3Onset)
	p.handleDiseaseMessage(Pre4Onset)
	if p.DiseaseState != DiseasePreclinicalStage4 {
		t.Fatalf("disease state = %v, want PRECLINICAL_STAGE4", p.DiseaseState)
	}

	p.handleDiseaseMessage(ClinicalOnset)
	if p.DiseaseState != DiseaseClinicalStage4 {
		t.Fatalf("disease state = %v, want CLINICAL_STAGE4", p.DiseaseState)
	}
	if p.StageAtDetection != 4 {
		t.Errorf("StageAtDetection = %d, want 4", p.StageAtDetection)
	}
}

func TestDiseaseStatechart_DeathIsAbsorbing(t *testing.T) {
	p := newBareDiseasePerson(t)
	p.handleDiseaseMessage(OtherDeath)
	if p.DiseaseState != DiseaseDead {
		t.Fatalf("disease state = %v, want DEAD", p.DiseaseState)
	}
	// Sending any further message to a dead person must be a no-op: DEAD
	// is absorbing and nothing re-enters HEALTHY.
	p.handleDiseaseMessage(PolypOnset)
	if p.DiseaseState != DiseaseDead {
		t.Errorf("disease state = %v, want to remain DEAD", p.DiseaseState)
	}
}

func TestDiseaseStatechart_UnexpectedInitMessagePanics(t *testing.T) {
	params := testParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("cannot validate test parameters: %v", err)
	}
	log, _ := newTestLog(t)
	sched := NewScheduler()
	rng := NewRNG(1)
	p := NewPerson("panic-test", Male, WhiteNonHispanic, 90, params, sched, rng, log)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic sending a non-INIT message to an uninitialized statechart")
		}
	}()
	p.handleDiseaseMessage(PolypOnset)
}

func TestDiseaseStatechart_DetectOtherCancersAdvancesAllPreclinicalLesions(t *testing.T) {
	p := newBareDiseasePerson(t)
	l1 := &Lesion{
		ID: 1, params: p.params, sched: p.sched, person: p, rng: p.rng, log: p.log,
		state:                  LesionPreclinicalStage2,
		transitionTimeoutEvent: &Event{Enabled: true},
		symptomsEvent:          &Event{Enabled: true},
	}
	l2 := &Lesion{ID: 2, params: p.params, sched: p.sched, person: p, rng: p.rng, log: p.log, state: LesionSmallPolyp}
	p.Lesions = []*Lesion{l1, l2}

	p.detectOtherCancers()
	drainAtCurrentTime(p.sched)

	if l1.state != LesionClinicalStage2 {
		t.Errorf("preclinical lesion state = %v, want CLINICAL_STAGE2 after clinical cascade", l1.state)
	}
	if l2.state != LesionSmallPolyp {
		t.Errorf("non-preclinical lesion state = %v, want to stay SMALL_POLYP", l2.state)
	}
}
