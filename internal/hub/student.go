package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"classhub/internal/competition"
	"classhub/internal/selection"
	"classhub/pkg/types"
)

// User-facing messages
const (
	msgNoClass          = "The teacher has not selected a class yet, please try again later"
	msgStudentNotFound  = "Student ID not found"
	msgNotInClass       = "You are not in the selected class"
	msgVerifyFailed     = "Could not verify student information"
	msgLoginFirst       = "Please log in first"
	msgTaskInactive     = "This task is not active"
	msgWaitForTeacher   = "Please wait for the teacher to start the competition"
	msgEmotionInactive  = "The emotion cards task is not active"
	msgEmotionSaved     = "Emotion submitted"
	msgEmotionSaveError = "Submission failed, please try again later"
)

func joinError(err error) types.JoinErrorPayload {
	switch {
	case errors.Is(err, selection.ErrNoClassSelected):
		return types.JoinErrorPayload{Message: msgNoClass, NoClass: true}
	case errors.Is(err, selection.ErrStudentNotFound):
		return types.JoinErrorPayload{Message: msgStudentNotFound}
	case errors.Is(err, selection.ErrNotInSelectedClass):
		return types.JoinErrorPayload{Message: msgNotInClass}
	default:
		return types.JoinErrorPayload{Message: msgVerifyFailed}
	}
}

func (h *Hub) handleJoinCompetition(connID, studentID string) {
	membership := h.selection.Membership()
	if _, ok := membership.Selected(); !ok {
		h.sendTo(connID, types.NewEvent(types.EventJoinError, joinError(selection.ErrNoClassSelected)))
		return
	}

	h.async(func(ctx context.Context) func() {
		student, err := membership.ResolveMember(ctx, studentID)
		return func() { h.completeJoin(connID, studentID, student, err) }
	})
}

// completeJoin runs back on the hub goroutine once the store lookup is done.
// State may have moved on in the meantime so it is read again here.
func (h *Hub) completeJoin(connID, studentID string, student *types.Student, err error) {
	if _, open := h.connections[connID]; !open {
		return
	}
	if err != nil {
		h.logger.Info("student login rejected", "student", studentID, "error", err)
		h.sendTo(connID, types.NewEvent(types.EventJoinError, joinError(err)))
		return
	}

	current, ok := h.selection.Current()
	if !ok || current.ClassID != student.ClassID {
		h.sendTo(connID, types.NewEvent(types.EventJoinError, joinError(selection.ErrNotInSelectedClass)))
		return
	}

	if evicted, ok := h.presence.RecordLogin(studentID, connID); ok {
		h.logger.Info("student logged in elsewhere, evicting", "student", studentID, "evicted", evicted)
		h.sendTo(evicted, types.NewEvent(types.EventForceLogout, nil))
		h.broadcaster.BroadcastAll(types.NewEvent(types.EventStudentLoggedOut, types.StudentEventPayload{StudentID: studentID}))
	}
	h.logger.Info("student logged in", "student", studentID, "connection", connID)
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventStudentLoggedIn, types.StudentEventPayload{StudentID: studentID}))

	classInfo := types.ClassInfo{ID: current.ClassID, Name: current.ClassName}

	if classID, ok := h.competition.ClassID(); ok && classID == student.ClassID {
		info, err := h.competition.Join(connID, studentID, student.ClassID)
		if err == nil {
			h.sendTo(connID, types.NewEvent(types.EventCompetitionJoined, types.CompetitionJoinedPayload{
				Text:      info.Text,
				Duration:  info.Remaining,
				IsStarted: info.Started,
				ClassInfo: types.ClassInfo{ID: info.ClassID, Name: info.ClassName},
			}))
			return
		}
		h.logger.Warn("competition join failed", "student", studentID, "error", err)
	}

	h.sendTo(connID, types.NewEvent(types.EventWaitingForCompetition, types.WaitingPayload{ClassInfo: classInfo}))
	h.sendTo(connID, h.availableTasksEvent(&types.StudentInfo{
		StudentID: student.StudentID,
		Name:      student.Name,
		Class:     classInfo,
	}))
}

func (h *Hub) handleJoinTask(connID string, p *types.JoinTaskPayload) {
	if p.TaskID != types.TaskTypingGame {
		def, known := h.tasks.Definition(p.TaskID)
		if !known || !h.tasks.IsActive(p.TaskID) {
			h.sendTo(connID, types.NewEvent(types.EventJoinError, types.JoinErrorPayload{Message: msgTaskInactive}))
			return
		}
		h.sendTo(connID, types.NewEvent(types.EventTaskJoined, types.TaskJoinedPayload{
			TaskID:  p.TaskID,
			Message: fmt.Sprintf("%s is ready", def.Title),
		}))
		return
	}

	classID, ok := h.competition.ClassID()
	if !ok {
		h.sendTo(connID, types.NewEvent(types.EventTaskJoined, types.TaskJoinedPayload{
			TaskID:  types.TaskTypingGame,
			Waiting: true,
			Message: msgWaitForTeacher,
		}))
		return
	}

	// Present students were validated against the selected class at login,
	// and only the connection holding that login may act for them
	current, selected := h.selection.Current()
	if owner, present := h.presence.ConnectionFor(p.StudentID); !present || owner != connID {
		h.sendTo(connID, types.NewEvent(types.EventJoinError, types.JoinErrorPayload{Message: msgLoginFirst}))
		return
	}
	if !selected || current.ClassID != classID {
		h.sendTo(connID, types.NewEvent(types.EventJoinError, types.JoinErrorPayload{Message: msgNotInClass}))
		return
	}

	info, err := h.competition.Join(connID, p.StudentID, classID)
	if err != nil {
		h.sendTo(connID, types.NewEvent(types.EventJoinError, types.JoinErrorPayload{Message: err.Error()}))
		return
	}
	h.sendTo(connID, types.NewEvent(types.EventTaskJoined, types.TaskJoinedPayload{
		TaskID:    types.TaskTypingGame,
		Text:      info.Text,
		Duration:  info.Remaining,
		IsStarted: info.Started,
	}))
}

func (h *Hub) handleUpdateProgress(connID string, p *types.UpdateProgressPayload) {
	participant, err := h.competition.UpdateProgress(connID, p.Progress, p.Accuracy)
	if errors.Is(err, competition.ErrAlreadyCompleted) {
		return
	}
	if err != nil {
		h.logger.Debug("progress update dropped", "connection", connID, "error", err)
		return
	}
	if participant.Completed {
		h.logger.Info("student finished", "student", participant.StudentID, "accuracy", participant.Accuracy)
	}
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventProgressUpdated, types.ProgressPayload{
		StudentID: participant.StudentID,
		Progress:  participant.Progress,
		Accuracy:  participant.Accuracy,
	}))
}

func (h *Hub) handleSubmitEmotion(connID string, p *types.SubmitEmotionPayload) {
	reply := func(success bool, message string) {
		h.sendTo(connID, types.NewEvent(types.EventEmotionSubmissionResult, types.SubmissionResultPayload{
			Success: success,
			Message: message,
		}))
	}

	if !h.tasks.IsActive(types.TaskEmotionCards) {
		reply(false, msgEmotionInactive)
		return
	}
	membership := h.selection.Membership()
	if _, ok := membership.Selected(); !ok {
		reply(false, msgNoClass)
		return
	}

	h.async(func(ctx context.Context) func() {
		student, err := membership.ResolveMember(ctx, p.StudentID)
		if err != nil {
			message := joinError(err).Message
			return func() { reply(false, message) }
		}

		result, err := json.Marshal(map[string]string{
			"emotionId":   p.EmotionID,
			"emotionName": p.EmotionName,
		})
		if err != nil {
			return func() { reply(false, msgEmotionSaveError) }
		}

		err = h.store.CreateTaskLog(ctx, &types.TaskLog{
			TaskID:     types.TaskEmotionCards,
			TaskType:   "emotion",
			StudentID:  student.StudentID,
			ClassID:    student.ClassID,
			TaskResult: result,
			TaskStatus: types.TaskStatusCompleted,
		})
		if err != nil {
			h.logger.Error("failed to save emotion", "student", p.StudentID, "error", err)
			return func() { reply(false, msgEmotionSaveError) }
		}

		h.logger.Info("emotion submitted", "student", p.StudentID, "emotion", p.EmotionName)
		return func() { reply(true, msgEmotionSaved) }
	})
}

func (h *Hub) handleLogout(studentID string) {
	if !h.presence.RecordLogout(studentID) {
		return
	}
	h.logger.Info("student logged out", "student", studentID)
	h.broadcaster.BroadcastAll(types.NewEvent(types.EventStudentLoggedOut, types.StudentEventPayload{StudentID: studentID}))
}
