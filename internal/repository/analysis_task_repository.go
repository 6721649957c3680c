package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/models"
)

const analysisTaskColumns = `id, skill_name, task_type, status, progress_percent,
		params_json, total_points, processed_points, failed_points,
		result_summary, error_message, created_by, created_at, updated_at,
		started_at, completed_at`

// AnalysisTaskRepository handles database operations for analysis tasks
type AnalysisTaskRepository struct {
	db *sql.DB
}

// NewAnalysisTaskRepository creates a new analysis task repository
func NewAnalysisTaskRepository(db *sql.DB) *AnalysisTaskRepository {
	return &AnalysisTaskRepository{db: db}
}

// Create creates a new analysis task
func (r *AnalysisTaskRepository) Create(ctx context.Context, task *models.AnalysisTask) error {
	now := time.Now().Unix()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.TaskType == "" {
		task.TaskType = models.TaskTypeFullRecompute
	}

	query := `
		INSERT INTO analysis_tasks (
			skill_name, task_type, status, progress_percent, params_json,
			total_points, processed_points, failed_points, result_summary,
			error_message, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		task.SkillName,
		task.TaskType,
		task.Status,
		task.ProgressPercent,
		task.ParamsJSON,
		task.TotalPoints,
		task.ProcessedPoints,
		task.FailedPoints,
		task.ResultSummary,
		task.ErrorMessage,
		task.CreatedBy,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves an analysis task by ID, nil when absent
func (r *AnalysisTaskRepository) GetByID(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+analysisTaskColumns+" FROM analysis_tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}
	return task, nil
}

// List retrieves analysis tasks with optional filters, newest first
func (r *AnalysisTaskRepository) List(ctx context.Context, skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	query := "SELECT " + analysisTaskColumns + " FROM analysis_tasks WHERE 1=1"

	args := []interface{}{}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.AnalysisTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress of an analysis task
func (r *AnalysisTaskRepository) UpdateProgress(ctx context.Context, id int64, totalPoints, processedPoints int, progressPercent float64) error {
	query := `
		UPDATE analysis_tasks
		SET total_points = ?, processed_points = ?, progress_percent = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, totalPoints, processedPoints, progressPercent, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}

	return nil
}

// MarkAsRunning marks a task as running
func (r *AnalysisTaskRepository) MarkAsRunning(ctx context.Context, id int64) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, models.TaskStatusRunning, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	return nil
}

// MarkAsCompleted marks a task as completed with result summary
func (r *AnalysisTaskRepository) MarkAsCompleted(ctx context.Context, id int64, resultSummary string) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, result_summary = ?,
			progress_percent = 100, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, models.TaskStatusCompleted, now, resultSummary, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *AnalysisTaskRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	return r.finish(ctx, id, models.TaskStatusFailed, errorMessage)
}

// MarkAsCancelled marks a task as cancelled
func (r *AnalysisTaskRepository) MarkAsCancelled(ctx context.Context, id int64, reason string) error {
	return r.finish(ctx, id, models.TaskStatusCancelled, reason)
}

func (r *AnalysisTaskRepository) finish(ctx context.Context, id int64, status, message string) error {
	now := time.Now().Unix()
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, status, now, message, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as %s: %w", status, err)
	}

	return nil
}

// Delete removes a task and, through the foreign key, its stay segments
func (r *AnalysisTaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM analysis_tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete analysis task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

func scanTask(row rowScanner) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{}
	var createdBy sql.NullString
	err := row.Scan(
		&task.ID,
		&task.SkillName,
		&task.TaskType,
		&task.Status,
		&task.ProgressPercent,
		&task.ParamsJSON,
		&task.TotalPoints,
		&task.ProcessedPoints,
		&task.FailedPoints,
		&task.ResultSummary,
		&task.ErrorMessage,
		&createdBy,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.StartedAt,
		&task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	task.CreatedBy = createdBy.String
	return task, nil
}
