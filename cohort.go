package crcsim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Sex is a Person's sex, as read from the cohort row.
type Sex int

const (
	Female Sex = iota
	Male
	OtherSex
)

func (s Sex) String() string {
	switch s {
	case Female:
		return "FEMALE"
	case Male:
		return "MALE"
	case OtherSex:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// RaceEthnicity is a Person's race/ethnicity, as read from the cohort row.
type RaceEthnicity int

const (
	Hispanic RaceEthnicity = iota
	WhiteNonHispanic
	BlackNonHispanic
	OtherNonHispanic
)

func (r RaceEthnicity) String() string {
	switch r {
	case Hispanic:
		return "HISPANIC"
	case WhiteNonHispanic:
		return "WHITE_NH"
	case BlackNonHispanic:
		return "BLACK_NH"
	case OtherNonHispanic:
		return "OTHER_NH"
	default:
		return "UNKNOWN"
	}
}

// CohortRow is one synthetic individual read in from the cohort file:
// {id, sex, race_ethnicity}.
type CohortRow struct {
	ID            string
	Sex           Sex
	RaceEthnicity RaceEthnicity
}

func parseSex(s string) (Sex, error) {
	switch s {
	case "female":
		return Female, nil
	case "male":
		return Male, nil
	case "other":
		return OtherSex, nil
	default:
		return 0, fmt.Errorf("unrecognized sex %q", s)
	}
}

func parseRaceEthnicity(s string) (RaceEthnicity, error) {
	switch s {
	case "hispanic":
		return Hispanic, nil
	case "white_non_hispanic":
		return WhiteNonHispanic, nil
	case "black_non_hispanic":
		return BlackNonHispanic, nil
	case "other_non_hispanic":
		return OtherNonHispanic, nil
	default:
		return 0, fmt.Errorf("unrecognized race_ethnicity %q", s)
	}
}

// LoadCohort reads cohort rows from a CSV file with header columns
// "id,sex,race_ethnicity". Uses stdlib encoding/csv rather than a
// third-party parsing library: a plain column-indexed CSV needs no more
// than that.
func LoadCohort(path string) ([]CohortRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open cohort file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read cohort header from %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, want := range []string{"id", "sex", "race_ethnicity"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("cohort file %s missing column %q", path, want)
		}
	}

	var rows []CohortRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read cohort row from %s", path)
		}
		sex, err := parseSex(record[col["sex"]])
		if err != nil {
			return nil, errors.Wrapf(err, "row with id %s", record[col["id"]])
		}
		race, err := parseRaceEthnicity(record[col["race_ethnicity"]])
		if err != nil {
			return nil, errors.Wrapf(err, "row with id %s", record[col["id"]])
		}
		rows = append(rows, CohortRow{
			ID:            record[col["id"]],
			Sex:           sex,
			RaceEthnicity: race,
		})
	}
	return rows, nil
}
