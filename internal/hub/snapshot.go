package hub

import (
	"context"

	"classhub/internal/competition"
	"classhub/internal/presence"
	"classhub/pkg/types"
)

// Snapshot is a point-in-time copy of the live classroom state
type Snapshot struct {
	SelectedClass *types.SelectedClass `json:"selectedClass"`
	Students      []presence.Entry     `json:"students"`
	ActiveTasks   []types.ActiveTask   `json:"activeTasks"`
	Competition   competition.Status   `json:"competition"`
	Connections   int                  `json:"connections"`
}

// Snapshot copies the live state on the hub goroutine
func (h *Hub) Snapshot(ctx context.Context) (*Snapshot, error) {
	if !h.isRunning() {
		return nil, ErrHubNotRunning
	}

	result := make(chan *Snapshot, 1)
	fn := func() {
		snap := &Snapshot{
			Students:    h.presence.Snapshot(),
			Competition: h.competition.Status(),
			Connections: len(h.connections),
		}
		if current, ok := h.selection.Current(); ok {
			snap.SelectedClass = &current
		}
		_, snap.ActiveTasks = h.tasks.List()
		result <- snap
	}

	select {
	case h.continuations <- fn:
	case <-h.done:
		return nil, ErrHubNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case snap := <-result:
		return snap, nil
	case <-h.done:
		return nil, ErrHubNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
