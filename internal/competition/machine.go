package competition

import (
	"math"
	"sort"
	"strings"
	"time"

	"classhub/pkg/types"
)

// Phase of the competition lifecycle. Ended is never observable: End
// discards the session and returns to Idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCreated
	PhaseStarted
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseStarted:
		return "started"
	default:
		return "idle"
	}
}

// Timer is the part of *time.Timer the machine needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Participant is one connection taking part in the competition
type Participant struct {
	StudentID string  `json:"studentId"`
	Progress  float64 `json:"progress"`
	Accuracy  float64 `json:"accuracy"`
	Completed bool    `json:"completed"`
}

// JoinInfo is what a joining student needs to render the competition
type JoinInfo struct {
	Text      string
	Remaining int // seconds
	Started   bool
	ClassID   int64
	ClassName string
}

// Archive is everything that survives an ended competition
type Archive struct {
	Text      string
	ClassID   int64
	ClassName string
	Results   []types.CompetitionEntry
}

// Status is a read-only view of the machine
type Status struct {
	Phase        string                   `json:"phase"`
	Text         string                   `json:"text,omitempty"`
	Duration     int                      `json:"duration,omitempty"`
	Remaining    int                      `json:"remaining,omitempty"`
	ClassID      int64                    `json:"classId,omitempty"`
	ClassName    string                   `json:"className,omitempty"`
	Participants []Participant            `json:"participants,omitempty"`
	Results      []types.CompetitionEntry `json:"results,omitempty"`
}

type session struct {
	text         string
	duration     int
	classID      int64
	className    string
	startTime    time.Time
	participants map[string]*Participant // connectionID -> participant
	results      []types.CompetitionEntry
	finished     map[string]bool // studentIDs already in results
	timer        Timer
}

// Machine runs at most one typing competition at a time.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Machine struct {
	current    *session
	generation uint64
	now        func() time.Time
	afterFunc  AfterFunc
}

// NewMachine creates an idle machine. Nil arguments select the real clock
// and time.AfterFunc.
func NewMachine(clock func() time.Time, afterFunc AfterFunc) *Machine {
	if clock == nil {
		clock = time.Now
	}
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Machine{now: clock, afterFunc: afterFunc}
}

// Phase returns the current lifecycle phase
func (m *Machine) Phase() Phase {
	switch {
	case m.current == nil:
		return PhaseIdle
	case m.current.startTime.IsZero():
		return PhaseCreated
	default:
		return PhaseStarted
	}
}

// Generation identifies the current session. It changes on every Create.
func (m *Machine) Generation() uint64 {
	return m.generation
}

// ClassID returns the class of the current session
func (m *Machine) ClassID() (int64, bool) {
	if m.current == nil {
		return 0, false
	}
	return m.current.classID, true
}

// Create opens a new competition waiting to be started
func (m *Machine) Create(text string, duration int, classID int64, className string) error {
	if m.current != nil {
		return ErrCompetitionExists
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if duration <= 0 {
		return ErrInvalidDuration
	}

	m.generation++
	m.current = &session{
		text:         text,
		duration:     duration,
		classID:      classID,
		className:    className,
		participants: make(map[string]*Participant),
		finished:     make(map[string]bool),
	}
	return nil
}

// Join registers connID as studentID's participant. An earlier participant
// with the same student ID on another connection is dropped.
func (m *Machine) Join(connID, studentID string, classID int64) (JoinInfo, error) {
	s := m.current
	if s == nil {
		return JoinInfo{}, ErrNoCompetition
	}
	if classID != s.classID {
		return JoinInfo{}, ErrWrongClass
	}

	for id, p := range s.participants {
		if p.StudentID == studentID && id != connID {
			delete(s.participants, id)
		}
	}
	s.participants[connID] = &Participant{StudentID: studentID}

	return JoinInfo{
		Text:      s.text,
		Remaining: m.remaining(),
		Started:   !s.startTime.IsZero(),
		ClassID:   s.classID,
		ClassName: s.className,
	}, nil
}

// Start begins the countdown. onExpire runs on the timer goroutine with the
// generation that scheduled it, so the caller can discard stale expiries.
func (m *Machine) Start(onExpire func(generation uint64)) error {
	s := m.current
	if s == nil {
		return ErrNoCompetition
	}
	if !s.startTime.IsZero() {
		return ErrNotCreated
	}

	s.startTime = m.now()
	generation := m.generation
	s.timer = m.afterFunc(time.Duration(s.duration)*time.Second, func() {
		onExpire(generation)
	})
	return nil
}

// UpdateProgress records a participant's progress. The first update at 100
// marks the participant completed and appends a result, at most once per
// student for the whole session.
func (m *Machine) UpdateProgress(connID string, progress, accuracy float64) (Participant, error) {
	s := m.current
	if s == nil || s.startTime.IsZero() {
		return Participant{}, ErrNotStarted
	}
	p, ok := s.participants[connID]
	if !ok {
		return Participant{}, ErrNotParticipant
	}
	if p.Completed {
		return *p, ErrAlreadyCompleted
	}

	p.Progress = clamp(progress)
	p.Accuracy = clamp(accuracy)

	if p.Progress >= 100 {
		p.Completed = true
		if !s.finished[p.StudentID] {
			s.finished[p.StudentID] = true
			s.results = append(s.results, types.CompetitionEntry{
				StudentID:      p.StudentID,
				Accuracy:       p.Accuracy,
				CompletionTime: m.now().Sub(s.startTime).Milliseconds(),
			})
		}
	}

	return *p, nil
}

// End finishes a started competition and returns what must be archived.
// generation 0 means a manual end; a timer passes the generation it was
// scheduled with and gets ErrStaleTimer if the session has since changed.
func (m *Machine) End(generation uint64) (Archive, error) {
	s := m.current
	if s == nil {
		return Archive{}, ErrNoCompetition
	}
	if generation != 0 && generation != m.generation {
		return Archive{}, ErrStaleTimer
	}
	if s.startTime.IsZero() {
		return Archive{}, ErrNotStarted
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	m.current = nil

	results := make([]types.CompetitionEntry, len(s.results))
	copy(results, s.results)
	return Archive{
		Text:      s.text,
		ClassID:   s.classID,
		ClassName: s.className,
		Results:   results,
	}, nil
}

// Cancel discards the current session in any phase without producing an
// archive. It reports whether there was anything to cancel.
func (m *Machine) Cancel() bool {
	if m.current == nil {
		return false
	}
	if m.current.timer != nil {
		m.current.timer.Stop()
	}
	m.current = nil
	return true
}

// RemoveConnection drops the participant on connID. Results are kept.
func (m *Machine) RemoveConnection(connID string) (studentID string, ok bool) {
	if m.current == nil {
		return "", false
	}
	p, ok := m.current.participants[connID]
	if !ok {
		return "", false
	}
	delete(m.current.participants, connID)
	return p.StudentID, true
}

// Participant returns the participant on connID
func (m *Machine) Participant(connID string) (Participant, bool) {
	if m.current == nil {
		return Participant{}, false
	}
	p, ok := m.current.participants[connID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Status describes the machine for diagnostics
func (m *Machine) Status() Status {
	status := Status{Phase: m.Phase().String()}
	s := m.current
	if s == nil {
		return status
	}

	status.Text = s.text
	status.Duration = s.duration
	status.Remaining = m.remaining()
	status.ClassID = s.classID
	status.ClassName = s.className
	for _, p := range s.participants {
		status.Participants = append(status.Participants, *p)
	}
	sort.Slice(status.Participants, func(i, j int) bool {
		return status.Participants[i].StudentID < status.Participants[j].StudentID
	})
	status.Results = append(status.Results, s.results...)
	return status
}

func (m *Machine) remaining() int {
	s := m.current
	if s.startTime.IsZero() {
		return s.duration
	}
	elapsed := int(math.Floor(m.now().Sub(s.startTime).Seconds()))
	if r := s.duration - elapsed; r > 0 {
		return r
	}
	return 0
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
