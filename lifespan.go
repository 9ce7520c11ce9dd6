package crcsim

import "fmt"

// demographicTable selects the death-rate step function for a Person's
// sex/race_ethnicity combination.
func demographicTable(p *Parameters, sex Sex, race RaceEthnicity) (*StepFunction, error) {
	switch sex {
	case Female:
		if race == WhiteNonHispanic {
			return p.DeathRateWhiteFemale, nil
		}
		return p.DeathRateBlackFemale, nil
	case Male, OtherSex:
		if race == WhiteNonHispanic {
			return p.DeathRateWhiteMale, nil
		}
		return p.DeathRateBlackMale, nil
	default:
		return nil, fmt.Errorf(UnknownRaceSexError, sex, race)
	}
}

// SampleLifespan draws an age-at-non-CRC-death by inverse-CDF against the
// demographic mortality table, clamped to max_age.
func SampleLifespan(p *Parameters, sex Sex, race RaceEthnicity, u float64) (float64, error) {
	deathRate, err := demographicTable(p, sex, race)
	if err != nil {
		return 0, err
	}

	cumSurvive := 1.0
	cumDeath := 0.0

	for i := 0; i <= p.MaxAge; i++ {
		q := deathRate.MustAt(float64(i))
		prob := q * cumSurvive
		cumDeath += prob
		cumSurvive *= 1 - q
		if u < cumDeath {
			lifespan := float64(i) + 1 - (cumDeath-u)/prob
			if lifespan > float64(p.MaxAge) {
				lifespan = float64(p.MaxAge)
			}
			return lifespan, nil
		}
	}
	return float64(p.MaxAge), nil
}
