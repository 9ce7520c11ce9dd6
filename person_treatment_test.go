package crcsim

import "testing"

func newBareTreatmentPerson(t *testing.T) (*Person, *Scheduler, *memoryLogger) {
	t.Helper()
	params := testParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("cannot validate test parameters: %v", err)
	}
	log, ml := newTestLog(t)
	sched := NewScheduler()
	rng := NewRNG(1)
	p := NewPerson("treatment-test", Male, WhiteNonHispanic, 90, params, sched, rng, log)
	p.handleTreatmentMessage(TreatmentInit)
	return p, sched, ml
}

func TestTreatmentStatechart_UnexpectedInitMessagePanics(t *testing.T) {
	p, _, _ := newBareTreatmentPerson(t)
	p.TreatmentState = TreatmentUninitialized

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic sending a non-INIT message to an uninitialized treatment statechart")
		}
	}()
	p.handleTreatmentMessage(OngoingTreatment)
}

func TestStartTreatment_LogsInitialAndSchedulesOngoingTimer(t *testing.T) {
	p, sched, ml := newBareTreatmentPerson(t)
	p.StageAtDetection = 2
	sched.Time = 60

	p.handleTreatmentMessage(StartTreatment)

	if p.TreatmentState != TreatmentOngoing {
		t.Fatalf("treatment state = %v, want ONGOING", p.TreatmentState)
	}
	if p.OngoingTreatmentCount != 0 {
		t.Errorf("OngoingTreatmentCount = %d, want 0 right after starting", p.OngoingTreatmentCount)
	}
	if p.PreviousTreatmentInitiationAge != 60 {
		t.Errorf("PreviousTreatmentInitiationAge = %d, want 60", p.PreviousTreatmentInitiationAge)
	}
	if len(ml.records) != 1 || ml.records[0].Role != RoleInitial || ml.records[0].Stage != "CLIN2" {
		t.Fatalf("records = %+v, want one INITIAL CLIN2 treatment record", ml.records)
	}

	found := false
	for _, ev := range sched.queue {
		if ev.Message == OngoingTreatment && ev.Time == 61 {
			found = true
		}
	}
	if !found {
		t.Error("expected an ONGOING_TREATMENT timer scheduled one year out")
	}
}

func TestHandleOngoingTreatment_StopsAtMaxOngoingTreatments(t *testing.T) {
	p, sched, ml := newBareTreatmentPerson(t)
	p.params.MaxOngoingTreatments = 2
	p.StageAtDetection = 3
	p.handleTreatmentMessage(StartTreatment)

	// Fire the queued ONGOING_TREATMENT timer the way the driver would, so
	// the timer startTreatment enqueued is consumed rather than left behind.
	ev := sched.ConsumeNext()
	ev.Handler(ev.Message)
	if p.OngoingTreatmentCount != 1 {
		t.Fatalf("OngoingTreatmentCount = %d, want 1", p.OngoingTreatmentCount)
	}
	rescheduled := 0
	for _, ev := range sched.queue {
		if ev.Message == OngoingTreatment {
			rescheduled++
		}
	}
	if rescheduled != 1 {
		t.Fatalf("expected exactly one pending ONGOING_TREATMENT timer after round 1, got %d", rescheduled)
	}

	ev = sched.ConsumeNext()
	ev.Handler(ev.Message)
	if p.OngoingTreatmentCount != 2 {
		t.Fatalf("OngoingTreatmentCount = %d, want 2", p.OngoingTreatmentCount)
	}
	rescheduled = 0
	for _, ev := range sched.queue {
		if ev.Message == OngoingTreatment {
			rescheduled++
		}
	}
	if rescheduled != 0 {
		t.Errorf("expected no further ONGOING_TREATMENT timer once max_ongoing_treatments is reached, got %d pending", rescheduled)
	}

	// Every round, including the last, must log a treatment record.
	ongoingRecords := 0
	for _, r := range ml.records {
		if r.Role == RoleOngoing {
			ongoingRecords++
		}
	}
	if ongoingRecords != 2 {
		t.Errorf("ongoing treatment records = %d, want 2 (one per year, including the last)", ongoingRecords)
	}
}

func TestStartTreatment_ReentryDisablesStaleOngoingTimer(t *testing.T) {
	p, sched, ml := newBareTreatmentPerson(t)
	p.StageAtDetection = 1
	p.handleTreatmentMessage(StartTreatment)
	staleEvent := p.ongoingTreatmentEvent

	// A second cancer found while already under treatment restarts the
	// clock: the stale timer must be disabled and a fresh one scheduled.
	p.StageAtDetection = 2
	p.handleTreatmentMessage(StartTreatment)

	if staleEvent.Enabled {
		t.Error("the first ONGOING_TREATMENT timer should be disabled once treatment restarts")
	}
	if p.OngoingTreatmentCount != 0 {
		t.Errorf("OngoingTreatmentCount = %d, want reset to 0 on re-entry", p.OngoingTreatmentCount)
	}

	initialRecords := 0
	for _, r := range ml.records {
		if r.Role == RoleInitial {
			initialRecords++
		}
	}
	if initialRecords != 2 {
		t.Errorf("initial treatment records = %d, want 2 (one per StartTreatment call)", initialRecords)
	}

	pending := 0
	for _, ev := range sched.queue {
		if ev.Message == OngoingTreatment && ev.Enabled {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("pending enabled ONGOING_TREATMENT timers = %d, want 1", pending)
	}
}

func TestTreatmentNone_IgnoresNonStartMessages(t *testing.T) {
	p, _, ml := newBareTreatmentPerson(t)
	p.handleTreatmentMessage(OngoingTreatment)
	if p.TreatmentState != TreatmentNone {
		t.Errorf("treatment state = %v, want to remain NONE", p.TreatmentState)
	}
	if len(ml.records) != 0 {
		t.Errorf("expected no treatment records logged, got %d", len(ml.records))
	}
}
