package crcsim

import "testing"

func TestNewStepFunction_LengthMismatch(t *testing.T) {
	_, err := NewStepFunction([]float64{0, 1}, []float64{1})
	if err == nil {
		t.Fatal("expected error on mismatched x/y length")
	}
}

func TestNewStepFunction_NotSorted(t *testing.T) {
	_, err := NewStepFunction([]float64{0, 2, 1}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected error on unsorted x")
	}
}

func TestNewStepFunction_ToleratesRepeatedKnots(t *testing.T) {
	f, err := NewStepFunction([]float64{0, 1, 1, 2}, []float64{10, 20, 30, 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := f.At(1); v != 30 {
		t.Errorf("At(1) = %v, want 30 (last knot at x=1 wins)", v)
	}
}

func TestStepFunction_At(t *testing.T) {
	f, err := NewStepFunction([]float64{0, 10, 20}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []struct {
		x, want float64
	}{
		{0, 1}, {5, 1}, {10, 2}, {15, 2}, {20, 3}, {100, 3},
	}
	for _, c := range cases {
		got, err := f.At(c.x)
		if err != nil {
			t.Errorf("At(%v) returned error: %v", c.x, err)
		}
		if got != c.want {
			t.Errorf("At(%v) = %v, want %v", c.x, got, c.want)
		}
	}
}

func TestStepFunction_AtBelowDomain(t *testing.T) {
	f, _ := NewStepFunction([]float64{10, 20}, []float64{1, 2})
	if _, err := f.At(5); err == nil {
		t.Fatal("expected domain error for a query below the smallest x")
	}
}

func TestStepFunction_MustAtPanicsOutOfDomain(t *testing.T) {
	f, _ := NewStepFunction([]float64{10, 20}, []float64{1, 2})
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustAt to panic out of domain")
		}
	}()
	f.MustAt(5)
}

func TestStringStepFunction_At(t *testing.T) {
	f, err := NewStringStepFunction([]float64{50, 60, 70}, []string{"fobt", "colo", "fit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := f.At(55); v != "fobt" {
		t.Errorf("At(55) = %q, want fobt", v)
	}
	if v, _ := f.At(65); v != "colo" {
		t.Errorf("At(65) = %q, want colo", v)
	}
	if v, _ := f.At(70); v != "fit" {
		t.Errorf("At(70) = %q, want fit", v)
	}
}
