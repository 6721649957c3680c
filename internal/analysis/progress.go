package analysis

import (
	"context"
	"time"
)

// ProgressTracker writes scan progress to the task row in batches.
// Report has the shape of staypoint.ProgressFunc so it can be handed to a detector.
type ProgressTracker struct {
	base      *BaseAnalyzer
	ctx       context.Context
	taskID    int64
	BatchSize int // Minimum cursor advance between two writes

	last    int
	started time.Time
}

// NewProgressTracker creates a tracker for one task
func (a *BaseAnalyzer) NewProgressTracker(ctx context.Context, taskID int64, batchSize int) *ProgressTracker {
	if batchSize <= 0 {
		batchSize = 1000 // Default batch size
	}
	return &ProgressTracker{
		base:      a,
		ctx:       ctx,
		taskID:    taskID,
		BatchSize: batchSize,
		started:   time.Now(),
	}
}

// Report records that cursor of total samples have been scanned.
// Write failures are logged, they never stop the scan.
func (p *ProgressTracker) Report(cursor, total int) {
	if cursor-p.last < p.BatchSize && cursor < total {
		return
	}
	p.last = cursor

	if err := p.base.UpdateTaskProgress(p.ctx, p.taskID, cursor, total); err != nil {
		p.base.Logger.Warn().Err(err).Int64("task_id", p.taskID).Msg("failed to update progress")
		return
	}

	if cursor > 0 && cursor < total {
		elapsed := time.Since(p.started)
		eta := time.Duration(float64(elapsed) / float64(cursor) * float64(total-cursor))
		p.base.Logger.Debug().
			Int64("task_id", p.taskID).
			Int("processed", cursor).
			Int("total", total).
			Dur("eta", eta).
			Msg("progress")
	}
}

// Processed returns the last cursor written
func (p *ProgressTracker) Processed() int {
	return p.last
}
