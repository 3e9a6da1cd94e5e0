package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"classhub/pkg/types"
)

type ResultEntryRequest struct {
	StudentID      string   `json:"studentId" validate:"required,max=50"`
	Accuracy       float64  `json:"accuracy" validate:"min=0,max=100"`
	Progress       *float64 `json:"progress" validate:"omitempty,min=0,max=100"`
	CompletionTime int64    `json:"completionTime" validate:"min=0"`
}

// ResultsRequest stores a batch of competition results sharing one text
type ResultsRequest struct {
	Results         []ResultEntryRequest `json:"results" validate:"required,min=1,max=500,dive"`
	CompetitionText string               `json:"competitionText" validate:"required,max=10000"`
	ClassID         int64                `json:"classId" validate:"required,min=1"`
}

type TaskLogRequest struct {
	TaskID     string          `json:"taskId" validate:"required,max=100"`
	TaskType   string          `json:"taskType" validate:"max=100"`
	StudentID  string          `json:"studentId" validate:"required,max=50"`
	ClassID    int64           `json:"classId" validate:"required,min=1"`
	TaskResult json.RawMessage `json:"taskResult"`
	TaskStatus string          `json:"taskStatus" validate:"omitempty,max=50"`
}

// LogBatch groups emotion logs submitted on one calendar day
type LogBatch struct {
	Date  string           `json:"date"`
	Count int              `json:"count"`
	Logs  []*types.TaskLog `json:"logs"`
}

// POST /api/competition/results
func (s *Server) createResults(w http.ResponseWriter, r *http.Request) {
	var req ResultsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "save results", err)
		return
	}

	date := time.Now().UTC()
	saved := make([]*types.CompetitionResult, 0, len(req.Results))
	for _, entry := range req.Results {
		progress := 100.0
		if entry.Progress != nil {
			progress = *entry.Progress
		}
		result := &types.CompetitionResult{
			StudentID:       strings.TrimSpace(entry.StudentID),
			ClassID:         req.ClassID,
			CompetitionText: req.CompetitionText,
			Accuracy:        entry.Accuracy,
			Progress:        progress,
			CompletionTime:  entry.CompletionTime,
			CompetitionDate: date,
		}
		if err := s.store.CreateCompetitionResult(r.Context(), result); err != nil {
			s.sendStoreError(w, "save results", err)
			return
		}
		saved = append(saved, result)
	}

	s.logger.Info("competition results saved", "class_id", req.ClassID, "count", len(saved))
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"results": saved})
}

// GET /api/competition/results
func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r, "classId")
	if err != nil {
		s.sendStoreError(w, "list results", err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		s.sendStoreError(w, "list results", err)
		return
	}

	query := r.URL.Query()
	results, err := s.store.ListCompetitionResults(r.Context(), types.ResultFilter{
		ClassID:   classID,
		StudentID: query.Get("studentId"),
		Text:      query.Get("text"),
		From:      from,
		To:        to,
	})
	if err != nil {
		s.sendStoreError(w, "list results", err)
		return
	}
	if results == nil {
		results = []*types.CompetitionResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// POST /api/tasks/logs
func (s *Server) createTaskLog(w http.ResponseWriter, r *http.Request) {
	var req TaskLogRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "save task log", err)
		return
	}
	if len(req.TaskResult) > 0 && !json.Valid(req.TaskResult) {
		s.sendError(w, "taskResult must be valid JSON", http.StatusBadRequest)
		return
	}

	log := &types.TaskLog{
		TaskID:     req.TaskID,
		TaskType:   req.TaskType,
		StudentID:  strings.TrimSpace(req.StudentID),
		ClassID:    req.ClassID,
		TaskResult: req.TaskResult,
		TaskStatus: req.TaskStatus,
	}
	if log.TaskType == "" {
		log.TaskType = log.TaskID
	}
	if err := s.store.CreateTaskLog(r.Context(), log); err != nil {
		s.sendStoreError(w, "save task log", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"log": log})
}

// GET /api/tasks/emotion-logs
func (s *Server) listEmotionLogs(w http.ResponseWriter, r *http.Request) {
	classID, err := queryID(r, "classId")
	if err != nil {
		s.sendStoreError(w, "list emotion logs", err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		s.sendStoreError(w, "list emotion logs", err)
		return
	}

	logs, err := s.store.ListTaskLogs(r.Context(), types.TaskLogFilter{
		TaskID:  types.TaskEmotionCards,
		ClassID: classID,
		Status:  types.TaskStatusCompleted,
		From:    from,
		To:      to,
	})
	if err != nil {
		s.sendStoreError(w, "list emotion logs", err)
		return
	}
	if logs == nil {
		logs = []*types.TaskLog{}
	}

	if r.URL.Query().Get("groupByDate") == "true" {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"batches": GroupByDate(logs)})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// GroupByDate buckets logs by UTC calendar date, newest date first. Logs
// keep their relative order within a bucket.
func GroupByDate(logs []*types.TaskLog) []LogBatch {
	index := make(map[string]int)
	batches := []LogBatch{}
	for _, log := range logs {
		date := log.CompletedAt.UTC().Format(time.DateOnly)
		i, ok := index[date]
		if !ok {
			i = len(batches)
			index[date] = i
			batches = append(batches, LogBatch{Date: date})
		}
		batches[i].Logs = append(batches[i].Logs, log)
		batches[i].Count++
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Date > batches[j].Date
	})
	return batches
}
