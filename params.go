package crcsim

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// TestParams holds the per-test configuration read from
// tests[name] = { ... }.
type TestParams struct {
	Proportion               float64 `toml:"proportion"`
	SensitivityPolyp1        float64 `toml:"sensitivity_polyp1"`
	SensitivityPolyp2        float64 `toml:"sensitivity_polyp2"`
	SensitivityPolyp3        float64 `toml:"sensitivity_polyp3"`
	SensitivityCancer        float64 `toml:"sensitivity_cancer"`
	Specificity              float64 `toml:"specificity"`
	Cost                     float64 `toml:"cost"`
	RoutineStart             int     `toml:"routine_start"`
	RoutineEnd               int     `toml:"routine_end"`
	RoutineFreq              int     `toml:"routine_freq"`
	ProportionPerforation    float64 `toml:"proportion_perforation"`
	CostPerforation          float64 `toml:"cost_perforation"`
	CompliancePrevCompliant  []float64 `toml:"compliance_rate_given_prev_compliant"`
	CompliancePrevNotCompliant []float64 `toml:"compliance_rate_given_not_prev_compliant"`
}

// Parameters is the immutable bundle every Person and Lesion reads from for
// the duration of a simulation. Constructed once at load time by
// LoadParameters, then shared by reference.
type Parameters struct {
	MaxAge int `toml:"max_age"`

	LesionRiskAlpha float64 `toml:"lesion_risk_alpha"`
	LesionRiskBeta  float64 `toml:"lesion_risk_beta"`

	LesionIncidenceAges []float64 `toml:"lesion_incidence_ages"`
	LesionIncidenceRates []float64 `toml:"lesion_incidence_rates"`
	LesionIncidence     *StepFunction `toml:"-"`

	DeathRateWhiteFemaleAges []float64 `toml:"death_rate_white_female_ages"`
	DeathRateWhiteFemaleRates []float64 `toml:"death_rate_white_female_rates"`
	DeathRateBlackFemaleAges []float64 `toml:"death_rate_black_female_ages"`
	DeathRateBlackFemaleRates []float64 `toml:"death_rate_black_female_rates"`
	DeathRateWhiteMaleAges []float64 `toml:"death_rate_white_male_ages"`
	DeathRateWhiteMaleRates []float64 `toml:"death_rate_white_male_rates"`
	DeathRateBlackMaleAges []float64 `toml:"death_rate_black_male_ages"`
	DeathRateBlackMaleRates []float64 `toml:"death_rate_black_male_rates"`

	DeathRateWhiteFemale *StepFunction `toml:"-"`
	DeathRateBlackFemale *StepFunction `toml:"-"`
	DeathRateWhiteMale   *StepFunction `toml:"-"`
	DeathRateBlackMale   *StepFunction `toml:"-"`

	Tests map[string]TestParams `toml:"tests"`

	DiagnosticTest   string   `toml:"diagnostic_test"`
	SurveillanceTest string   `toml:"surveillance_test"`
	RoutineTests     []string `toml:"routine_tests"`

	InitialComplianceRate      float64 `toml:"initial_compliance_rate"`
	DiagnosticComplianceRate   float64 `toml:"diagnostic_compliance_rate"`
	SurveillanceComplianceRate float64 `toml:"surveillance_compliance_rate"`
	NeverCompliantRate         float64 `toml:"never_compliant_rate"`
	UseConditionalCompliance   bool    `toml:"use_conditional_compliance"`

	PolypectomyProportionLethal float64 `toml:"polypectomy_proportion_lethal"`

	MeanDurationPolyp1Polyp2 float64 `toml:"mean_duration_polyp1_polyp2"`
	MeanDurationPolyp2Polyp3 float64 `toml:"mean_duration_polyp2_polyp3"`
	MeanDurationPolyp2Pre    float64 `toml:"mean_duration_polyp2_pre"`
	MeanDurationPolyp3Pre    float64 `toml:"mean_duration_polyp3_pre"`
	MeanDurationPre1Pre2     float64 `toml:"mean_duration_pre1_pre2"`
	MeanDurationPre2Pre3     float64 `toml:"mean_duration_pre2_pre3"`
	MeanDurationPre3Pre4     float64 `toml:"mean_duration_pre3_pre4"`
	MeanDurationPre1Clin1    float64 `toml:"mean_duration_pre1_clin1"`
	MeanDurationPre2Clin2    float64 `toml:"mean_duration_pre2_clin2"`
	MeanDurationPre3Clin3    float64 `toml:"mean_duration_pre3_clin3"`
	MeanDurationPre4Clin4    float64 `toml:"mean_duration_pre4_clin4"`
	MeanDurationClin1Dead    float64 `toml:"mean_duration_clin1_dead"`
	MeanDurationClin2Dead    float64 `toml:"mean_duration_clin2_dead"`
	MeanDurationClin3Dead    float64 `toml:"mean_duration_clin3_dead"`
	MeanDurationClin4Dead    float64 `toml:"mean_duration_clin4_dead"`

	ProportionSurviveClin1 float64 `toml:"proportion_survive_clin1"`
	ProportionSurviveClin2 float64 `toml:"proportion_survive_clin2"`
	ProportionSurviveClin3 float64 `toml:"proportion_survive_clin3"`
	ProportionSurviveClin4 float64 `toml:"proportion_survive_clin4"`

	SurveillanceFreqPolypNone     int `toml:"surveillance_freq_polyp_none"`
	SurveillanceFreqPolypMild     int `toml:"surveillance_freq_polyp_mild"`
	SurveillanceFreqPolypModerate int `toml:"surveillance_freq_polyp_moderate"`
	SurveillanceFreqPolypSevere   int `toml:"surveillance_freq_polyp_severe"`
	SurveillanceFreqCancerFirst   int `toml:"surveillance_freq_cancer_first"`
	SurveillanceFreqCancerSecond  int `toml:"surveillance_freq_cancer_second"`
	SurveillanceFreqCancerRest    int `toml:"surveillance_freq_cancer_rest"`
	SurveillanceEndAge            int `toml:"surveillance_end_age"`

	DurationScreenSkipTesting float64 `toml:"duration_screen_skip_testing"`
	MaxOngoingTreatments      int     `toml:"max_ongoing_treatments"`

	UseVariableRoutineTest bool      `toml:"use_variable_routine_test"`
	RoutineTestingYear     []float64 `toml:"routine_testing_year"`
	RoutineTestByYear      []string  `toml:"routine_test_by_year"`
	VariableRoutineTest    *StringStepFunction `toml:"-"`

	// Cost-accounting fields, carried through for the out-of-scope
	// external analysis collaborator; no core operation reads them.
	CostDiscountAge     float64   `toml:"cost_discount_age"`
	CostDiscountRate    float64   `toml:"cost_discount_rate"`
	CostPolypPathology  float64   `toml:"cost_polyp_pathology"`
	CostPolypectomy     float64   `toml:"cost_polypectomy"`
	ValueLifeYearAges   []float64 `toml:"value_life_year_ages"`
	ValueLifeYearDollars []float64 `toml:"value_life_year_dollars"`
	ValueLifeYear       *StepFunction `toml:"-"`

	validated bool
}

// StringStepFunction is a piecewise-constant mapping from a sorted x domain
// to string values, used for the year->routine-test schedule.
// Kept separate from StepFunction (which is float64-valued) because its
// domain-alignment invariant (must equal a routine test's
// [routine_start, routine_end]) is checked against integer years, not
// interpolated numerically.
type StringStepFunction struct {
	x []float64
	y []string
}

// NewStringStepFunction validates length and sort order the same way
// NewStepFunction does.
func NewStringStepFunction(x []float64, y []string) (*StringStepFunction, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf(StepFunctionLengthError, len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			return nil, fmt.Errorf(StepFunctionSortError)
		}
	}
	return &StringStepFunction{x: append([]float64(nil), x...), y: append([]string(nil), y...)}, nil
}

// At returns the test name in effect at the given time.
func (f *StringStepFunction) At(value float64) (string, error) {
	i := sort.Search(len(f.x), func(k int) bool { return f.x[k] > value }) - 1
	if i < 0 {
		return "", fmt.Errorf(StepFunctionDomainError, value)
	}
	return f.y[i], nil
}

// Validate constructs every embedded step function and checks the
// cross-field invariants: step functions must be well-formed,
// routine test proportions must sum to <= 1, and a variable-routine-test
// domain must align exactly with every routine test's
// [routine_start, routine_end].
func (p *Parameters) Validate() error {
	var err error

	p.LesionIncidence, err = NewStepFunction(p.LesionIncidenceAges, p.LesionIncidenceRates)
	if err != nil {
		return errors.Wrap(err, "lesion_incidence")
	}
	p.DeathRateWhiteFemale, err = NewStepFunction(p.DeathRateWhiteFemaleAges, p.DeathRateWhiteFemaleRates)
	if err != nil {
		return errors.Wrap(err, "death_rate_white_female")
	}
	p.DeathRateBlackFemale, err = NewStepFunction(p.DeathRateBlackFemaleAges, p.DeathRateBlackFemaleRates)
	if err != nil {
		return errors.Wrap(err, "death_rate_black_female")
	}
	p.DeathRateWhiteMale, err = NewStepFunction(p.DeathRateWhiteMaleAges, p.DeathRateWhiteMaleRates)
	if err != nil {
		return errors.Wrap(err, "death_rate_white_male")
	}
	p.DeathRateBlackMale, err = NewStepFunction(p.DeathRateBlackMaleAges, p.DeathRateBlackMaleRates)
	if err != nil {
		return errors.Wrap(err, "death_rate_black_male")
	}
	if len(p.ValueLifeYearAges) > 0 {
		p.ValueLifeYear, err = NewStepFunction(p.ValueLifeYearAges, p.ValueLifeYearDollars)
		if err != nil {
			return errors.Wrap(err, "value_life_year")
		}
	}

	var sum float64
	for _, t := range p.Tests {
		sum += t.Proportion
	}
	if sum > 1 {
		return errors.Wrap(fmt.Errorf(TestProportionSumError, sum), "tests")
	}

	if p.UseVariableRoutineTest {
		p.VariableRoutineTest, err = NewStringStepFunction(p.RoutineTestingYear, p.RoutineTestByYear)
		if err != nil {
			return errors.Wrap(err, "routine_test_by_year")
		}
		lo, hi := p.RoutineTestingYear[0], p.RoutineTestingYear[len(p.RoutineTestingYear)-1]
		for _, name := range p.RoutineTests {
			tp, ok := p.Tests[name]
			if !ok {
				return errors.Wrap(fmt.Errorf(UnknownTestError, name), "routine_tests")
			}
			if lo != float64(tp.RoutineStart) || hi != float64(tp.RoutineEnd) {
				return fmt.Errorf(VariableRoutineDomainError, lo, hi, name, tp.RoutineStart, tp.RoutineEnd)
			}
		}
	}

	p.validated = true
	return nil
}
