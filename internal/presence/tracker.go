package presence

import (
	"sort"
	"time"
)

// DefaultHeartbeatTimeout is how long a student may stay silent before the
// sweep reports them offline.
const DefaultHeartbeatTimeout = 10 * time.Second

// Clock returns the current time
type Clock func() time.Time

// Entry is one logged-in student as seen by Snapshot
type Entry struct {
	StudentID     string    `json:"studentId"`
	ConnectionID  string    `json:"connectionId"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// Tracker maps logged-in students to their authoritative connection.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Tracker struct {
	connections map[string]string    // studentID -> connectionID
	heartbeats  map[string]time.Time // studentID -> last heartbeat
	timeout     time.Duration
	now         Clock
}

// NewTracker creates a tracker. A zero timeout selects DefaultHeartbeatTimeout
// and a nil clock selects time.Now.
func NewTracker(timeout time.Duration, clock Clock) *Tracker {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		connections: make(map[string]string),
		heartbeats:  make(map[string]time.Time),
		timeout:     timeout,
		now:         clock,
	}
}

// RecordLogin installs connID as the student's connection. When the student
// was already present under another connection that connection is returned
// for eviction.
func (t *Tracker) RecordLogin(studentID, connID string) (evicted string, ok bool) {
	if existing, present := t.connections[studentID]; present && existing != connID {
		evicted, ok = existing, true
	}
	t.connections[studentID] = connID
	t.heartbeats[studentID] = t.now()
	return evicted, ok
}

// RecordHeartbeat refreshes a present student. Unknown students are ignored.
func (t *Tracker) RecordHeartbeat(studentID string) bool {
	if _, present := t.connections[studentID]; !present {
		return false
	}
	t.heartbeats[studentID] = t.now()
	return true
}

// RecordLogout removes the student and reports whether they were present
func (t *Tracker) RecordLogout(studentID string) bool {
	if _, present := t.connections[studentID]; !present {
		return false
	}
	delete(t.connections, studentID)
	delete(t.heartbeats, studentID)
	return true
}

// StudentForConnection finds the student whose authoritative connection is
// connID. The mapping is left in place.
func (t *Tracker) StudentForConnection(connID string) (string, bool) {
	for studentID, c := range t.connections {
		if c == connID {
			return studentID, true
		}
	}
	return "", false
}

// ConnectionFor returns the student's authoritative connection
func (t *Tracker) ConnectionFor(studentID string) (string, bool) {
	connID, ok := t.connections[studentID]
	return connID, ok
}

// IsPresent reports whether the student is logged in
func (t *Tracker) IsPresent(studentID string) bool {
	_, ok := t.connections[studentID]
	return ok
}

// Stale lists students whose last heartbeat is older than the timeout,
// sorted by student ID. Stale students are not removed.
func (t *Tracker) Stale(now time.Time) []string {
	var stale []string
	for studentID, last := range t.heartbeats {
		if now.Sub(last) > t.timeout {
			stale = append(stale, studentID)
		}
	}
	sort.Strings(stale)
	return stale
}

// Clear empties the tracker and returns the removed studentID -> connectionID mapping
func (t *Tracker) Clear() map[string]string {
	removed := t.connections
	t.connections = make(map[string]string)
	t.heartbeats = make(map[string]time.Time)
	return removed
}

// Len returns the number of present students
func (t *Tracker) Len() int {
	return len(t.connections)
}

// Snapshot copies the current entries, sorted by student ID
func (t *Tracker) Snapshot() []Entry {
	entries := make([]Entry, 0, len(t.connections))
	for studentID, connID := range t.connections {
		entries = append(entries, Entry{
			StudentID:     studentID,
			ConnectionID:  connID,
			LastHeartbeat: t.heartbeats[studentID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StudentID < entries[j].StudentID
	})
	return entries
}
