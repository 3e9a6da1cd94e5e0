package presence

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewTracker(10*time.Second, clock.Now), clock
}

func TestTracker_RecordLogin(t *testing.T) {
	tracker, _ := newTestTracker()

	if evicted, ok := tracker.RecordLogin("s1", "c1"); ok {
		t.Errorf("first login should not evict, got %q", evicted)
	}

	// Reconnect on the same connection is not an eviction
	if _, ok := tracker.RecordLogin("s1", "c1"); ok {
		t.Error("same connection should not evict")
	}

	evicted, ok := tracker.RecordLogin("s1", "c2")
	if !ok || evicted != "c1" {
		t.Errorf("expected eviction of c1, got %q ok=%v", evicted, ok)
	}

	connID, _ := tracker.ConnectionFor("s1")
	if connID != "c2" {
		t.Errorf("expected authoritative connection c2, got %s", connID)
	}
	if tracker.Len() != 1 {
		t.Errorf("expected one present student, got %d", tracker.Len())
	}
}

func TestTracker_HeartbeatAndStale(t *testing.T) {
	tracker, clock := newTestTracker()

	if tracker.RecordHeartbeat("ghost") {
		t.Error("heartbeat for absent student should be ignored")
	}
	if tracker.IsPresent("ghost") {
		t.Error("heartbeat must not create presence")
	}

	tracker.RecordLogin("s1", "c1")
	tracker.RecordLogin("s2", "c2")

	clock.Advance(8 * time.Second)
	tracker.RecordHeartbeat("s2")

	clock.Advance(3 * time.Second)
	stale := tracker.Stale(clock.Now())
	if len(stale) != 1 || stale[0] != "s1" {
		t.Fatalf("expected [s1] stale, got %v", stale)
	}

	// Sweeping only reports
	if !tracker.IsPresent("s1") {
		t.Error("stale student must stay present")
	}

	clock.Advance(10 * time.Second)
	stale = tracker.Stale(clock.Now())
	if len(stale) != 2 {
		t.Errorf("expected both students stale, got %v", stale)
	}
}

func TestTracker_StaleBoundary(t *testing.T) {
	tracker, clock := newTestTracker()
	tracker.RecordLogin("s1", "c1")

	clock.Advance(10 * time.Second)
	if stale := tracker.Stale(clock.Now()); len(stale) != 0 {
		t.Errorf("exactly the timeout is not stale yet, got %v", stale)
	}
}

func TestTracker_Logout(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.RecordLogin("s1", "c1")

	if !tracker.RecordLogout("s1") {
		t.Error("logout of present student should report true")
	}
	if tracker.RecordLogout("s1") {
		t.Error("second logout should report false")
	}
	if _, ok := tracker.StudentForConnection("c1"); ok {
		t.Error("connection should no longer resolve")
	}
}

func TestTracker_StudentForConnectionKeepsMapping(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.RecordLogin("s1", "c1")

	studentID, ok := tracker.StudentForConnection("c1")
	if !ok || studentID != "s1" {
		t.Fatalf("expected s1, got %q ok=%v", studentID, ok)
	}
	if !tracker.IsPresent("s1") {
		t.Error("lookup must not remove the mapping")
	}

	// An evicted connection no longer resolves
	tracker.RecordLogin("s1", "c2")
	if _, ok := tracker.StudentForConnection("c1"); ok {
		t.Error("evicted connection should not resolve")
	}
}

func TestTracker_ClearAndSnapshot(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.RecordLogin("s2", "c2")
	tracker.RecordLogin("s1", "c1")

	snapshot := tracker.Snapshot()
	if len(snapshot) != 2 || snapshot[0].StudentID != "s1" || snapshot[1].ConnectionID != "c2" {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}

	removed := tracker.Clear()
	if len(removed) != 2 || removed["s1"] != "c1" {
		t.Errorf("unexpected removed mapping %v", removed)
	}
	if tracker.Len() != 0 {
		t.Error("tracker should be empty after Clear")
	}
}

func TestNewTracker_Defaults(t *testing.T) {
	tracker := NewTracker(0, nil)
	if tracker.timeout != DefaultHeartbeatTimeout {
		t.Errorf("expected default timeout, got %v", tracker.timeout)
	}
	if tracker.now == nil {
		t.Error("expected default clock")
	}
}
