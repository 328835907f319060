package index

import (
	"context"
	"time"

	"codeatlas/internal/cache"
)

// Progress is a point-in-time snapshot of a long-running indexing task.
type Progress struct {
	TaskID     string    `json:"task_id"`
	Stage      string    `json:"stage"`
	Percent    float64   `json:"percent"`
	FilesDone  int       `json:"files_done"`
	FilesTotal int       `json:"files_total"`
	Message    string    `json:"message,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProgressTracker publishes task progress through the short-TTL progress
// cache. Snapshots of abandoned tasks simply expire.
type ProgressTracker struct {
	provider *cache.Provider
}

func NewProgressTracker(provider *cache.Provider) *ProgressTracker {
	return &ProgressTracker{provider: provider}
}

// Update stores the latest snapshot for its task, stamping UpdatedAt when
// the caller left it zero.
func (t *ProgressTracker) Update(ctx context.Context, p Progress) bool {
	if p.TaskID == "" {
		return false
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return cache.SetTyped(ctx, t.provider.ProgressCache(), p.TaskID, p, 0)
}

// Get returns the latest snapshot for a task.
func (t *ProgressTracker) Get(ctx context.Context, taskID string) (Progress, bool) {
	return cache.GetTyped[Progress](ctx, t.provider.ProgressCache(), taskID)
}

// Finish removes the snapshot once a task completes.
func (t *ProgressTracker) Finish(ctx context.Context, taskID string) bool {
	return t.provider.ProgressCache().Del(ctx, taskID)
}
