package crcsim

import "github.com/segmentio/ksuid"

// RecordType distinguishes the kinds of rows the event log carries, plus
// run_started, which records provenance for the run as a whole rather
// than any one person or lesion.
type RecordType int

const (
	RecordRunStarted RecordType = iota
	RecordDiseaseStateChange
	RecordLesionStateChange
	RecordLifespan
	RecordTestChosen
	RecordTestPerformed
	RecordPathology
	RecordPolypectomy
	RecordPerforation
	RecordNoncompliance
	RecordTreatment
)

func (r RecordType) String() string {
	switch r {
	case RecordRunStarted:
		return "run_started"
	case RecordDiseaseStateChange:
		return "disease_state_change"
	case RecordLesionStateChange:
		return "lesion_state_change"
	case RecordLifespan:
		return "lifespan"
	case RecordTestChosen:
		return "test_chosen"
	case RecordTestPerformed:
		return "test_performed"
	case RecordPathology:
		return "pathology"
	case RecordPolypectomy:
		return "polypectomy"
	case RecordPerforation:
		return "perforation"
	case RecordNoncompliance:
		return "noncompliance"
	case RecordTreatment:
		return "treatment"
	default:
		return "unknown"
	}
}

// Role identifies which test protocol (for test_performed/pathology/
// polypectomy/perforation/noncompliance records) or which
// treatment phase (for treatment records) a row belongs to.
type Role int

const (
	RoleNone Role = iota
	RoleRoutine
	RoleDiagnostic
	RoleSurveillance
	RoleInitial
	RoleOngoing
	RoleTerminal
)

func (r Role) String() string {
	switch r {
	case RoleRoutine:
		return "ROUTINE"
	case RoleDiagnostic:
		return "DIAGNOSTIC"
	case RoleSurveillance:
		return "SURVEILLANCE"
	case RoleInitial:
		return "INITIAL"
	case RoleOngoing:
		return "ONGOING"
	case RoleTerminal:
		return "TERMINAL"
	default:
		return ""
	}
}

// EventRecord is one row of the event log: record_type, person_id,
// lesion_id, time, message, old_state, new_state, test_name,
// routine_test, role, stage, plus the run_id every row is stamped with.
type EventRecord struct {
	RunID       string
	RecordType  RecordType
	PersonID    string
	LesionID    int64
	HasLesionID bool
	Time        float64
	Message     string
	OldState    string
	NewState    string
	TestName    string
	RoutineTest string
	Role        Role
	Stage       string
}

// DataLogger is the storage-backend contract an EventLog writes through.
// Open/Commit/Close bracket a run; Commit is called once per individual so
// a crash mid-cohort loses at most the individual in flight.
type DataLogger interface {
	Open() error
	WriteRecord(EventRecord) error
	Commit() error
	Close() error
}

// EventLog is the single point every Person/Lesion writes state changes
// through. It stamps a run id (via ksuid) on every record and forwards
// typed Add* calls as EventRecords, one record_type at a time.
type EventLog struct {
	RunID  string
	logger DataLogger
}

// NewEventLog creates an EventLog with a freshly minted run id and opens
// the given backend.
func NewEventLog(logger DataLogger) (*EventLog, error) {
	if err := logger.Open(); err != nil {
		return nil, err
	}
	return &EventLog{RunID: ksuid.New().String(), logger: logger}, nil
}

// write stamps the run id and forwards the record to the backend. Errors
// are not surfaced here: a single bad row should not abort a cohort run.
// TODO: surface this via a logged warning once crcsim grows a logging
// facade.
func (e *EventLog) write(r EventRecord) {
	r.RunID = e.RunID
	e.logger.WriteRecord(r)
}

// AddRunStarted logs the run_started record carrying the run id and
// parameter provenance.
func (e *EventLog) AddRunStarted(paramsPath string) {
	e.write(EventRecord{
		RecordType: RecordRunStarted,
		Message:    paramsPath,
	})
}

// AddLifespan logs the sampled age-at-non-CRC-death for a person, emitted
// once per individual before their simulation starts.
func (e *EventLog) AddLifespan(personID string, lifespan float64) {
	e.write(EventRecord{
		RecordType: RecordLifespan,
		PersonID:   personID,
		Time:       lifespan,
	})
}

// AddTestChosen logs the routine test a person drew at Start.
func (e *EventLog) AddTestChosen(personID string, test string) {
	e.write(EventRecord{
		RecordType: RecordTestChosen,
		PersonID:   personID,
		TestName:   test,
	})
}

func (e *EventLog) AddDiseaseStateChange(personID string, message Tag, t float64, oldState, newState, routineTest string) {
	e.write(EventRecord{
		RecordType:  RecordDiseaseStateChange,
		PersonID:    personID,
		Time:        t,
		Message:     message.String(),
		OldState:    oldState,
		NewState:    newState,
		RoutineTest: routineTest,
	})
}

func (e *EventLog) AddLesionStateChange(personID string, lesionID int64, message Tag, t float64, oldState, newState string) {
	e.write(EventRecord{
		RecordType:  RecordLesionStateChange,
		PersonID:    personID,
		LesionID:    lesionID,
		HasLesionID: true,
		Time:        t,
		Message:     message.String(),
		OldState:    oldState,
		NewState:    newState,
	})
}

// AddTreatment logs one treatment phase: INITIAL on each START_TREATMENT,
// ONGOING on each annual continuation, TERMINAL on CRC_DEATH.
func (e *EventLog) AddTreatment(personID string, t float64, role Role, stage string) {
	e.write(EventRecord{
		RecordType: RecordTreatment,
		PersonID:   personID,
		Time:       t,
		Role:       role,
		Stage:      stage,
	})
}

// AddPathology logs a pathology read for a detected polyp with the lesion's
// state as its stage, so polyp-size detail survives into the log. False
// positives are logged with lesion id -1 and an empty stage; detected
// cancers get no pathology row.
func (e *EventLog) AddPathology(personID string, lesionID int64, t float64, testName string, role Role, stage string) {
	e.write(EventRecord{
		RecordType:  RecordPathology,
		PersonID:    personID,
		LesionID:    lesionID,
		HasLesionID: true,
		Time:        t,
		TestName:    testName,
		Role:        role,
		Stage:       stage,
	})
}

// AddPolypectomy logs one flat polypectomy event per positive test with at
// least one detected polyp.
func (e *EventLog) AddPolypectomy(personID string, t float64, testName string, role Role) {
	e.write(EventRecord{
		RecordType: RecordPolypectomy,
		PersonID:   personID,
		Time:       t,
		TestName:   testName,
		Role:       role,
	})
}

// AddPerforation logs a rare endoscopic perforation adverse event.
func (e *EventLog) AddPerforation(personID string, t float64, testName string, role Role, routineTest string) {
	e.write(EventRecord{
		RecordType:  RecordPerforation,
		PersonID:    personID,
		Time:        t,
		TestName:    testName,
		Role:        role,
		RoutineTest: routineTest,
	})
}

// AddNoncompliance logs a person's declination of a due test.
func (e *EventLog) AddNoncompliance(personID string, t float64, testName string, role Role) {
	e.write(EventRecord{
		RecordType: RecordNoncompliance,
		PersonID:   personID,
		Time:       t,
		TestName:   testName,
		Role:       role,
	})
}

// AddTest logs one administered, compliant test and its outcome.
func (e *EventLog) AddTest(personID string, t float64, testName string, role Role, outcome string) {
	e.write(EventRecord{
		RecordType: RecordTestPerformed,
		PersonID:   personID,
		Time:       t,
		TestName:   testName,
		Role:       role,
		Message:    outcome,
	})
}

// Commit flushes the current individual's buffered records, matching the
// driver contract's "commit after each individual" rule.
func (e *EventLog) Commit() error {
	return e.logger.Commit()
}

// Close releases the backend at the end of a cohort run.
func (e *EventLog) Close() error {
	return e.logger.Close()
}
