package tasks

import (
	"fmt"
	"maps"

	"classhub/pkg/types"
)

// Catalog is the fixed set of tasks a teacher can publish, in display order.
var Catalog = []types.TaskDefinition{
	{
		ID:          types.TaskTypingGame,
		Title:       "Typing Competition",
		Description: "Race the class in real time to improve typing speed and accuracy",
		Icon:        "SportsEsports",
		Color:       "#bbdefb",
	},
	{
		ID:          types.TaskQRCodeScanner,
		Title:       "QR Code Scanner",
		Description: "Upload a picture and decode the QR code it contains",
		Icon:        "QrCode",
		Color:       "#b2dfdb",
	},
	{
		ID:          types.TaskEmotionCards,
		Title:       "Emotion Cards",
		Description: "Pick a card that matches how you feel right now",
		Icon:        "Psychology",
		Color:       "#e1bee7",
	},
	{
		ID:          types.TaskImageFilter,
		Title:       "Image Filter",
		Description: "Adjust brightness, contrast and saturation of an uploaded picture",
		Icon:        "FilterAlt",
		Color:       "#ffccbc",
	},
	{
		ID:          types.TaskWhiteboard,
		Title:       "Whiteboard",
		Description: "Draw together on a shared canvas",
		Icon:        "Draw",
		Color:       "#fff9c4",
	},
}

// Registry tracks which catalog tasks are currently published.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Registry struct {
	catalog map[string]types.TaskDefinition
	order   []string
	active  map[string]*types.ActiveTask
}

// NewRegistry creates a registry over Catalog with nothing active
func NewRegistry() *Registry {
	r := &Registry{
		catalog: make(map[string]types.TaskDefinition, len(Catalog)),
		order:   make([]string, 0, len(Catalog)),
		active:  make(map[string]*types.ActiveTask),
	}
	for _, def := range Catalog {
		r.catalog[def.ID] = def
		r.order = append(r.order, def.ID)
	}
	return r
}

// Definition looks up a catalog entry
func (r *Registry) Definition(taskID string) (types.TaskDefinition, bool) {
	def, ok := r.catalog[taskID]
	return def, ok
}

// SetActive publishes or withdraws a task. Re-activating an active task
// keeps the entry, merges data into it, and touches the taskbar flag only
// when showInTaskbar is set. Withdrawing an inactive task is a no-op.
func (r *Registry) SetActive(taskID string, active bool, data map[string]any, showInTaskbar *bool) error {
	def, ok := r.catalog[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	if !active {
		delete(r.active, taskID)
		return nil
	}

	task, ok := r.active[taskID]
	if !ok {
		task = &types.ActiveTask{TaskDefinition: def, Active: true}
		r.active[taskID] = task
	}
	if len(data) > 0 {
		// published snapshots may still be queued for encoding, so never
		// write into a map that has already been handed out
		merged := make(map[string]any, len(task.Data)+len(data))
		maps.Copy(merged, task.Data)
		maps.Copy(merged, data)
		task.Data = merged
	}
	if showInTaskbar != nil {
		task.ShowInTaskbar = *showInTaskbar
	}
	return nil
}

// IsActive reports whether taskID is published
func (r *Registry) IsActive(taskID string) bool {
	_, ok := r.active[taskID]
	return ok
}

// Active returns a copy of one published task
func (r *Registry) Active(taskID string) (types.ActiveTask, bool) {
	task, ok := r.active[taskID]
	if !ok {
		return types.ActiveTask{}, false
	}
	return *task, true
}

// List returns the full catalog and the published tasks, both in catalog order
func (r *Registry) List() (all []types.TaskDefinition, active []types.ActiveTask) {
	all = make([]types.TaskDefinition, 0, len(r.order))
	active = make([]types.ActiveTask, 0, len(r.active))
	for _, id := range r.order {
		all = append(all, r.catalog[id])
		if task, ok := r.active[id]; ok {
			active = append(active, *task)
		}
	}
	return all, active
}
