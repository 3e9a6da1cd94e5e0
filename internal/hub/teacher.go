package hub

import (
	"context"
	"errors"

	"classhub/internal/competition"
	"classhub/pkg/types"
)

func (h *Hub) handleSelectClass(p *types.SelectClassPayload) {
	if !h.applySelection(p.ClassID, p.ClassName) {
		h.broadcaster.BroadcastAll(h.classSelectedEvent())
	}
	h.broadcaster.BroadcastAll(h.availableTasksEvent(nil))
}

// applySelection switches the selected class. Moving to a different class
// announces the new selection and then logs every present student out, so
// clients never see the logout before they learn which class replaced theirs.
func (h *Hub) applySelection(classID int64, className string) bool {
	previous, changed := h.selection.Select(classID, className)
	h.logger.Info("class selected", "class_id", classID, "class_name", className, "previous", previous.ClassID)
	if !changed {
		return false
	}
	h.broadcaster.BroadcastAll(h.classSelectedEvent())

	removed := h.presence.Clear()
	for studentID, connID := range removed {
		h.logger.Info("forcing logout after class change", "student", studentID)
		h.sendTo(connID, types.NewEvent(types.EventForceLogout, nil))
	}
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventAllStudentsLoggedOut, nil))
	return true
}

func (h *Hub) handleCreateCompetition(connID string, p *types.CreateCompetitionPayload) {
	if err := h.competition.Create(p.Text, p.Duration, p.ClassID, p.ClassName); err != nil {
		h.sendError(connID, types.EventCreateCompetition, err)
		return
	}
	h.logger.Info("competition created", "class_id", p.ClassID, "duration", p.Duration)

	h.applySelection(p.ClassID, p.ClassName)

	data := map[string]any{
		"duration":  p.Duration,
		"classId":   p.ClassID,
		"className": p.ClassName,
	}
	if err := h.tasks.SetActive(types.TaskTypingGame, true, data, nil); err != nil {
		h.logger.Error("failed to activate typing game", "error", err)
	}

	def, _ := h.tasks.Definition(types.TaskTypingGame)
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventCompetitionCreated, types.CompetitionCreatedPayload{
		Duration:  p.Duration,
		ClassID:   p.ClassID,
		ClassName: p.ClassName,
	}))
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventTaskAvailable, types.TaskStatusPayload{
		TaskID:   types.TaskTypingGame,
		TaskName: def.Title,
		Active:   true,
	}))
	h.broadcaster.BroadcastAll(h.availableTasksEvent(nil))
}

func (h *Hub) handleStartCompetition(connID string) {
	if err := h.competition.Start(h.onTimerExpired); err != nil {
		h.sendError(connID, types.EventStartCompetition, err)
		return
	}
	h.logger.Info("competition started")
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventCompetitionStarted, nil))
}

func (h *Hub) handleEndCompetition() {
	archive, err := h.competition.End(0)
	switch {
	case err == nil:
		h.finishCompetition(archive, true)
	case errors.Is(err, competition.ErrNotStarted):
		// nothing was typed yet, so there is nothing to archive
		h.competition.Cancel()
		h.finishCompetition(competition.Archive{}, false)
	default:
		h.logger.Debug("end ignored", "error", err)
	}
}

func (h *Hub) handleExpiry(generation uint64) {
	archive, err := h.competition.End(generation)
	if err != nil {
		h.logger.Debug("timer expiry ignored", "generation", generation, "error", err)
		return
	}
	h.logger.Info("competition time is up")
	h.finishCompetition(archive, true)
}

// finishCompetition tells everyone first and archives afterwards so a slow
// store never delays the results.
func (h *Hub) finishCompetition(archive competition.Archive, persist bool) {
	results := archive.Results
	if results == nil {
		results = []types.CompetitionEntry{}
	}
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventCompetitionEnded, types.CompetitionEndedPayload{Results: results}))

	if err := h.tasks.SetActive(types.TaskTypingGame, false, nil, nil); err != nil {
		h.logger.Error("failed to withdraw typing game", "error", err)
	}
	h.broadcaster.BroadcastAll(h.availableTasksEvent(nil))

	if !persist || len(results) == 0 {
		return
	}
	h.async(func(ctx context.Context) func() {
		if err := h.store.SaveCompetitionResults(ctx, archive.ClassID, archive.Text, results); err != nil {
			h.logger.Error("failed to archive competition results", "class_id", archive.ClassID, "results", len(results), "error", err)
			return nil
		}
		h.logger.Info("competition results archived", "class_id", archive.ClassID, "results", len(results))
		return nil
	})
}

func (h *Hub) handleSetTask(connID, eventType, taskID string, active bool, showInTaskbar *bool) {
	if err := h.tasks.SetActive(taskID, active, nil, showInTaskbar); err != nil {
		h.sendError(connID, eventType, err)
		return
	}
	h.logger.Info("task updated", "task", taskID, "active", active)

	h.broadcaster.BroadcastAll(types.NewEvent(types.EventTaskStatusUpdate, types.TaskStatusPayload{
		TaskID:        taskID,
		Active:        active,
		ShowInTaskbar: showInTaskbar,
	}))
	h.broadcaster.BroadcastAll(h.availableTasksEvent(nil))
}

func (h *Hub) handleCheckTaskStatus(connID string, p *types.TaskQueryPayload) {
	h.sendTo(connID, types.NewEvent(types.EventTaskStatusResult, types.TaskStatusPayload{
		TaskID: p.TaskID,
		Active: h.tasks.IsActive(p.TaskID),
	}))
}
