package competition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// harness drives a machine with a manual clock and captured timers
type harness struct {
	now      time.Time
	timers   []*fakeTimer
	fire     []func()
	delays   []time.Duration
	expiries []uint64
	machine  *Machine
}

func newHarness() *harness {
	h := &harness{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	h.machine = NewMachine(
		func() time.Time { return h.now },
		func(d time.Duration, f func()) Timer {
			timer := &fakeTimer{}
			h.timers = append(h.timers, timer)
			h.fire = append(h.fire, f)
			h.delays = append(h.delays, d)
			return timer
		},
	)
	return h
}

func (h *harness) onExpire(generation uint64) {
	h.expiries = append(h.expiries, generation)
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func TestMachine_Create(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		duration int
		wantErr  error
	}{
		{"valid", "hello world", 60, nil},
		{"empty text", "", 60, ErrEmptyText},
		{"blank text", "   ", 60, ErrEmptyText},
		{"zero duration", "hello", 0, ErrInvalidDuration},
		{"negative duration", "hello", -5, ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newHarness().machine
			err := m.Create(tt.text, tt.duration, 1, "Class A")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, PhaseIdle, m.Phase())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PhaseCreated, m.Phase())
		})
	}
}

func TestMachine_CreateWhileActive(t *testing.T) {
	m := newHarness().machine
	require.NoError(t, m.Create("first", 60, 1, "Class A"))
	assert.ErrorIs(t, m.Create("second", 60, 1, "Class A"), ErrCompetitionExists)

	status := m.Status()
	assert.Equal(t, "first", status.Text)
}

func TestMachine_JoinBeforeStart(t *testing.T) {
	m := newHarness().machine

	_, err := m.Join("c1", "s1", 1)
	assert.ErrorIs(t, err, ErrNoCompetition)

	require.NoError(t, m.Create("hello", 60, 1, "Class A"))

	info, err := m.Join("c1", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, JoinInfo{Text: "hello", Remaining: 60, Started: false, ClassID: 1, ClassName: "Class A"}, info)

	_, err = m.Join("c2", "s2", 2)
	assert.ErrorIs(t, err, ErrWrongClass)

	p, ok := m.Participant("c1")
	require.True(t, ok)
	assert.Equal(t, Participant{StudentID: "s1"}, p)
}

func TestMachine_LateJoinerRemainingTime(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))

	h.advance(20*time.Second + 700*time.Millisecond)
	info, err := m.Join("c1", "s1", 1)
	require.NoError(t, err)
	assert.True(t, info.Started)
	assert.Equal(t, 40, info.Remaining)

	h.advance(2 * time.Minute)
	info, err = m.Join("c2", "s2", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Remaining)
}

func TestMachine_RejoinDropsEarlierConnection(t *testing.T) {
	m := newHarness().machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))

	_, _ = m.Join("c1", "s1", 1)
	_, _ = m.Join("c2", "s1", 1)

	_, ok := m.Participant("c1")
	assert.False(t, ok)
	_, ok = m.Participant("c2")
	assert.True(t, ok)
	assert.Len(t, m.Status().Participants, 1)
}

func TestMachine_Start(t *testing.T) {
	h := newHarness()
	m := h.machine

	assert.ErrorIs(t, m.Start(h.onExpire), ErrNoCompetition)

	require.NoError(t, m.Create("hello", 45, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))
	assert.Equal(t, PhaseStarted, m.Phase())
	require.Len(t, h.delays, 1)
	assert.Equal(t, 45*time.Second, h.delays[0])

	assert.ErrorIs(t, m.Start(h.onExpire), ErrNotCreated)
	assert.Len(t, h.timers, 1, "second start must not schedule another timer")
}

func TestMachine_UpdateProgress(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	_, _ = m.Join("c1", "s1", 1)

	_, err := m.UpdateProgress("c1", 10, 100)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, m.Start(h.onExpire))

	_, err = m.UpdateProgress("stranger", 10, 100)
	assert.ErrorIs(t, err, ErrNotParticipant)

	p, err := m.UpdateProgress("c1", 40, 95)
	require.NoError(t, err)
	assert.Equal(t, 40.0, p.Progress)
	assert.False(t, p.Completed)

	h.advance(12 * time.Second)
	p, err = m.UpdateProgress("c1", 100, 98)
	require.NoError(t, err)
	assert.True(t, p.Completed)

	_, err = m.UpdateProgress("c1", 100, 50)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	status := m.Status()
	require.Len(t, status.Results, 1)
	assert.Equal(t, "s1", status.Results[0].StudentID)
	assert.Equal(t, 98.0, status.Results[0].Accuracy)
	assert.Equal(t, int64(12000), status.Results[0].CompletionTime)
}

func TestMachine_UpdateProgressClamps(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	_, _ = m.Join("c1", "s1", 1)
	_, _ = m.Join("c2", "s2", 1)
	require.NoError(t, m.Start(h.onExpire))

	p, err := m.UpdateProgress("c1", -5, 150)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Progress)
	assert.Equal(t, 100.0, p.Accuracy)

	p, err = m.UpdateProgress("c2", 250, 90)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Progress)
	assert.True(t, p.Completed)
}

func TestMachine_ResultAppendedOncePerStudent(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	_, _ = m.Join("c1", "s1", 1)
	require.NoError(t, m.Start(h.onExpire))

	_, err := m.UpdateProgress("c1", 100, 90)
	require.NoError(t, err)

	// Reconnect and finish again
	_, _ = m.Join("c2", "s1", 1)
	p, err := m.UpdateProgress("c2", 100, 99)
	require.NoError(t, err)
	assert.True(t, p.Completed)

	results := m.Status().Results
	require.Len(t, results, 1)
	assert.Equal(t, 90.0, results[0].Accuracy)
}

func TestMachine_DisconnectKeepsResults(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	_, _ = m.Join("c1", "s1", 1)
	require.NoError(t, m.Start(h.onExpire))
	_, _ = m.UpdateProgress("c1", 100, 100)

	studentID, ok := m.RemoveConnection("c1")
	assert.True(t, ok)
	assert.Equal(t, "s1", studentID)

	_, ok = m.RemoveConnection("c1")
	assert.False(t, ok)

	archive, err := m.End(0)
	require.NoError(t, err)
	assert.Len(t, archive.Results, 1)
}

func TestMachine_End(t *testing.T) {
	h := newHarness()
	m := h.machine

	_, err := m.End(0)
	assert.ErrorIs(t, err, ErrNoCompetition)

	require.NoError(t, m.Create("hello", 60, 7, "Class A"))
	_, err = m.End(0)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, PhaseCreated, m.Phase(), "failed end leaves the session alone")

	require.NoError(t, m.Start(h.onExpire))
	archive, err := m.End(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", archive.Text)
	assert.Equal(t, int64(7), archive.ClassID)
	assert.Empty(t, archive.Results)
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.True(t, h.timers[0].stopped)

	// Second end before the next create is a no-op
	_, err = m.End(0)
	assert.ErrorIs(t, err, ErrNoCompetition)
}

func TestMachine_TimerExpiry(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))

	h.fire[0]()
	require.Equal(t, []uint64{m.Generation()}, h.expiries)

	_, err := m.End(h.expiries[0])
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, m.Phase())
}

func TestMachine_StaleTimerIsIgnored(t *testing.T) {
	h := newHarness()
	m := h.machine
	require.NoError(t, m.Create("first", 60, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))
	staleGeneration := m.Generation()

	_, err := m.End(0)
	require.NoError(t, err)

	require.NoError(t, m.Create("second", 60, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))

	// The first timer fires late, after a manual end and a new competition
	h.fire[0]()
	_, err = m.End(h.expiries[0])
	assert.True(t, errors.Is(err, ErrStaleTimer))
	assert.Equal(t, PhaseStarted, m.Phase())
	assert.Equal(t, "second", m.Status().Text)
	assert.NotEqual(t, staleGeneration, m.Generation())
}

func TestMachine_Cancel(t *testing.T) {
	h := newHarness()
	m := h.machine
	assert.False(t, m.Cancel())

	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	assert.True(t, m.Cancel())
	assert.Equal(t, PhaseIdle, m.Phase())

	require.NoError(t, m.Create("hello", 60, 1, "Class A"))
	require.NoError(t, m.Start(h.onExpire))
	assert.True(t, m.Cancel())
	assert.True(t, h.timers[0].stopped)
}

func TestMachine_StatusIdle(t *testing.T) {
	m := NewMachine(nil, nil)
	status := m.Status()
	assert.Equal(t, "idle", status.Phase)
	_, ok := m.ClassID()
	assert.False(t, ok)
}
