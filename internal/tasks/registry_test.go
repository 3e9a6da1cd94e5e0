package tasks

import (
	"errors"
	"testing"

	"classhub/pkg/types"
)

func TestRegistry_CatalogIsComplete(t *testing.T) {
	r := NewRegistry()
	all, active := r.List()

	want := []string{
		types.TaskTypingGame,
		types.TaskQRCodeScanner,
		types.TaskEmotionCards,
		types.TaskImageFilter,
		types.TaskWhiteboard,
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d catalog entries, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("catalog[%d] = %s, want %s", i, all[i].ID, id)
		}
	}
	if len(active) != 0 {
		t.Errorf("expected nothing active, got %d", len(active))
	}
}

func TestRegistry_SetActive(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *Registry)
		taskID     string
		active     bool
		wantErr    error
		wantActive bool
	}{
		{
			name:       "activate",
			taskID:     types.TaskEmotionCards,
			active:     true,
			wantActive: true,
		},
		{
			name:    "unknown task",
			taskID:  "chess",
			active:  true,
			wantErr: ErrUnknownTask,
		},
		{
			name: "deactivate",
			setup: func(r *Registry) {
				_ = r.SetActive(types.TaskWhiteboard, true, nil, nil)
			},
			taskID: types.TaskWhiteboard,
			active: false,
		},
		{
			name:   "deactivate absent is a no-op",
			taskID: types.TaskImageFilter,
			active: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if tt.setup != nil {
				tt.setup(r)
			}

			err := r.SetActive(tt.taskID, tt.active, nil, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetActive() error = %v, want %v", err, tt.wantErr)
			}
			if got := r.IsActive(tt.taskID); got != tt.wantActive {
				t.Errorf("IsActive() = %v, want %v", got, tt.wantActive)
			}
		})
	}
}

func TestRegistry_UnknownTaskLeavesStateUntouched(t *testing.T) {
	r := NewRegistry()
	_ = r.SetActive(types.TaskEmotionCards, true, nil, nil)

	if err := r.SetActive("bogus", true, nil, nil); err == nil {
		t.Fatal("expected error")
	}

	_, active := r.List()
	if len(active) != 1 || active[0].ID != types.TaskEmotionCards {
		t.Errorf("unexpected active list %+v", active)
	}
}

func TestRegistry_ActivateTwiceUpdatesInPlace(t *testing.T) {
	r := NewRegistry()
	show := true
	_ = r.SetActive(types.TaskTypingGame, true, map[string]any{"duration": 60}, nil)
	_ = r.SetActive(types.TaskTypingGame, true, map[string]any{"duration": 90}, &show)

	_, active := r.List()
	if len(active) != 1 {
		t.Fatalf("expected one active entry, got %d", len(active))
	}
	task, _ := r.Active(types.TaskTypingGame)
	if task.Data["duration"] != 90 || !task.ShowInTaskbar {
		t.Errorf("expected updated entry, got %+v", task)
	}
	if task.Title == "" || !task.Active {
		t.Errorf("active entry should carry the definition, got %+v", task)
	}
}

func TestRegistry_RepublishKeepsCompetitionData(t *testing.T) {
	r := NewRegistry()
	show := true
	_ = r.SetActive(types.TaskTypingGame, true, map[string]any{"duration": 60, "classId": int64(3)}, &show)

	// the teacher toggles the task from the taskbar without any data
	if err := r.SetActive(types.TaskTypingGame, true, nil, nil); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	task, _ := r.Active(types.TaskTypingGame)
	if task.Data["duration"] != 60 || task.Data["classId"] != int64(3) {
		t.Errorf("data after re-publish: %v", task.Data)
	}
	if !task.ShowInTaskbar {
		t.Error("taskbar flag should survive a re-publish that does not set it")
	}

	hide := false
	_ = r.SetActive(types.TaskTypingGame, true, map[string]any{"className": "3A"}, &hide)
	task, _ = r.Active(types.TaskTypingGame)
	if task.ShowInTaskbar {
		t.Error("explicit taskbar flag should be applied")
	}
	if len(task.Data) != 3 || task.Data["className"] != "3A" || task.Data["duration"] != 60 {
		t.Errorf("expected merged data, got %v", task.Data)
	}
}

func TestRegistry_ListKeepsCatalogOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.SetActive(types.TaskWhiteboard, true, nil, nil)
	_ = r.SetActive(types.TaskTypingGame, true, nil, nil)

	_, active := r.List()
	if len(active) != 2 || active[0].ID != types.TaskTypingGame || active[1].ID != types.TaskWhiteboard {
		t.Errorf("unexpected order %+v", active)
	}
}
