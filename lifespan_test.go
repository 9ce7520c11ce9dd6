package crcsim

import "testing"

func sampleDemographicParams() *Parameters {
	p := &Parameters{MaxAge: 100}
	flat := func(rate float64) *StepFunction {
		f, _ := NewStepFunction([]float64{0, 100}, []float64{rate, rate})
		return f
	}
	p.DeathRateWhiteFemale = flat(0.01)
	p.DeathRateBlackFemale = flat(0.02)
	p.DeathRateWhiteMale = flat(0.03)
	p.DeathRateBlackMale = flat(0.04)
	return p
}

func TestSampleLifespan_SelectsTableBySexAndRace(t *testing.T) {
	p := sampleDemographicParams()
	lifespan, err := SampleLifespan(p, Female, WhiteNonHispanic, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifespan <= 0 || lifespan > float64(p.MaxAge) {
		t.Errorf("lifespan = %v, want in (0, %d]", lifespan, p.MaxAge)
	}
	black, err := SampleLifespan(p, Female, BlackNonHispanic, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if black >= lifespan {
		t.Errorf("black female lifespan = %v, want shorter than white female %v (death rate 0.02 vs 0.01)", black, lifespan)
	}
}

func TestSampleLifespan_OtherSexUsesMaleTable(t *testing.T) {
	p := sampleDemographicParams()
	wantMale, err := SampleLifespan(p, Male, WhiteNonHispanic, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotOther, err := SampleLifespan(p, OtherSex, WhiteNonHispanic, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOther != wantMale {
		t.Errorf("OtherSex lifespan = %v, want the male table's %v", gotOther, wantMale)
	}
}

func TestSampleLifespan_ClampedToMaxAge(t *testing.T) {
	p := sampleDemographicParams()
	lifespan, err := SampleLifespan(p, Female, WhiteNonHispanic, 0.999999999999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifespan > float64(p.MaxAge) {
		t.Errorf("lifespan = %v, want clamped to max_age %d", lifespan, p.MaxAge)
	}
}

func TestSampleLifespan_UnknownCombinationErrors(t *testing.T) {
	p := sampleDemographicParams()
	if _, err := SampleLifespan(p, Sex(99), WhiteNonHispanic, 0.5); err == nil {
		t.Fatal("expected an error for an unrecognized sex")
	}
}
