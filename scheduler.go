package crcsim

import "container/heap"

// Tag enumerates every message flowing through a Person's scheduler. Each
// statechart (disease, testing, treatment, lesion) owns a disjoint block of
// values so a single Event queue can carry cross-statechart dispatch without
// a handler ever mistaking one family's message for another's.
type Tag int

// Control and timer messages not owned by any one statechart.
const (
	EndSimulation Tag = iota
	YearlyActions
	CreateLesion
	OngoingTreatment
)

// Disease statechart messages.
const (
	DiseaseInit Tag = 100 + iota
	PolypOnset
	PolypMediumOnset
	PolypLargeOnset
	PreclinicalOnset
	Pre2Onset
	Pre3Onset
	Pre4Onset
	ClinicalOnset
	AllPolypsRemoved
	OtherDeath
	CRCDeath
	PolypectomyDeath
)

// Testing statechart messages.
const (
	TestingInit Tag = 200 + iota
	Symptomatic
	ScreenPositive
	RoutineIsDiagnostic
	NotCompliant
	ReturnToRoutine
	Negative
	PositivePolyp
	PositiveCancer
)

// Treatment statechart messages.
const (
	TreatmentInit Tag = 300 + iota
	StartTreatment
)

// Lesion statechart messages.
const (
	LesionInit Tag = 400 + iota
	ProgressPolypStage
	ProgressCancerStage
	ClinicalDetection
	BecomeCancer
	KillPerson
)

var tagNames = map[Tag]string{
	EndSimulation:    "END_SIMULATION",
	YearlyActions:    "YEARLY_ACTIONS",
	CreateLesion:     "CREATE_LESION",
	OngoingTreatment: "ONGOING_TREATMENT",

	DiseaseInit:      "INIT",
	PolypOnset:       "POLYP_ONSET",
	PolypMediumOnset: "POLYP_MEDIUM_ONSET",
	PolypLargeOnset:  "POLYP_LARGE_ONSET",
	PreclinicalOnset: "PRECLINICAL_ONSET",
	Pre2Onset:        "PRE2_ONSET",
	Pre3Onset:        "PRE3_ONSET",
	Pre4Onset:        "PRE4_ONSET",
	ClinicalOnset:    "CLINICAL_ONSET",
	AllPolypsRemoved: "ALL_POLYPS_REMOVED",
	OtherDeath:       "OTHER_DEATH",
	CRCDeath:         "CRC_DEATH",
	PolypectomyDeath: "POLYPECTOMY_DEATH",

	TestingInit:         "INIT",
	Symptomatic:         "SYMPTOMATIC",
	ScreenPositive:      "SCREEN_POSITIVE",
	RoutineIsDiagnostic: "ROUTINE_IS_DIAGNOSTIC",
	NotCompliant:        "NOT_COMPLIANT",
	ReturnToRoutine:     "RETURN_TO_ROUTINE",
	Negative:            "NEGATIVE",
	PositivePolyp:       "POSITIVE_POLYP",
	PositiveCancer:      "POSITIVE_CANCER",

	TreatmentInit:  "INIT",
	StartTreatment: "START_TREATMENT",

	LesionInit:          "INIT",
	ProgressPolypStage:  "PROGRESS_POLYP_STAGE",
	ProgressCancerStage: "PROGRESS_CANCER_STAGE",
	ClinicalDetection:   "CLINICAL_DETECTION",
	BecomeCancer:        "BECOME_CANCER",
	KillPerson:          "KILL_PERSON",
}

// String returns the message's symbolic name, matching the format the
// event log's "message" column uses for every record.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Handler is the dispatch target for an Event. Handlers run to completion;
// they never suspend. A handler mutates Person/Lesion state and may enqueue
// further events, but never removes or reorders the queue directly.
type Handler func(message Tag)

// Event is a single scheduled occurrence: a message destined for a handler
// at a given simulation time. Events are owned exclusively by the
// Scheduler's queue. Callers never delete an Event; they disable it.
type Event struct {
	Message Tag
	Time    float64
	Handler Handler
	Enabled bool

	seq   uint64
	index int
}

// eventHeap is a container/heap.Interface ordering Events by (Time, seq).
// The monotonically increasing seq assigned at Schedule time gives a
// stable FIFO tie-break for equal times in O(log n) per operation.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler owns the time-ordered event queue driving one individual's
// simulation, plus the single monotonic simulation clock.
type Scheduler struct {
	queue   eventHeap
	nextSeq uint64
	Time    float64
}

// NewScheduler returns an empty Scheduler with its clock at zero.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Schedule inserts an Event at Time + delay and returns a handle so the
// caller may later disable it. Delay must be >= 0; scheduling never moves
// the clock.
func (s *Scheduler) Schedule(message Tag, handler Handler, delay float64) *Event {
	e := &Event{
		Message: message,
		Time:    s.Time + delay,
		Handler: handler,
		Enabled: true,
		seq:     s.nextSeq,
	}
	s.nextSeq++
	heap.Push(&s.queue, e)
	return e
}

// ConsumeNext removes and returns the earliest Event, advancing the clock
// to that event's time. Panics if the queue is empty.
func (s *Scheduler) ConsumeNext() *Event {
	if s.IsEmpty() {
		panic(EmptyQueueError)
	}
	e := heap.Pop(&s.queue).(*Event)
	s.Time = e.Time
	return e
}

// IsEmpty reports whether the queue holds no events.
func (s *Scheduler) IsEmpty() bool {
	return s.queue.Len() == 0
}
