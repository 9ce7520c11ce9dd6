package crcsim

import (
	"encoding/csv"
	"os"
	"strconv"
)

// csvHeader names every column WriteRecord emits, in order.
var csvHeader = []string{
	"run_id", "record_type", "person_id", "lesion_id", "time", "message",
	"old_state", "new_state", "test_name", "routine_test", "role", "stage",
}

// CSVLogger is a DataLogger that appends every EventRecord as one row of a
// single flat CSV file, the simplest of the two backends a run can
// choose: crcsim has a single record stream, so one file suffices.
type CSVLogger struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVLogger returns a CSVLogger that will write to path.
func NewCSVLogger(path string) *CSVLogger {
	return &CSVLogger{path: path}
}

// Open creates (or truncates) the backing file and writes the header row.
func (l *CSVLogger) Open() error {
	f, err := os.Create(l.path)
	if err != nil {
		return err
	}
	l.file = f
	l.writer = csv.NewWriter(f)
	return l.writer.Write(csvHeader)
}

// WriteRecord appends one row.
func (l *CSVLogger) WriteRecord(r EventRecord) error {
	lesionID := ""
	if r.HasLesionID {
		lesionID = strconv.FormatInt(r.LesionID, 10)
	}
	row := []string{
		r.RunID,
		r.RecordType.String(),
		r.PersonID,
		lesionID,
		strconv.FormatFloat(r.Time, 'f', -1, 64),
		r.Message,
		r.OldState,
		r.NewState,
		r.TestName,
		r.RoutineTest,
		r.Role.String(),
		r.Stage,
	}
	return l.writer.Write(row)
}

// Commit flushes buffered rows to disk, matching the driver's "commit
// after each individual" contract.
func (l *CSVLogger) Commit() error {
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the backing file.
func (l *CSVLogger) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
