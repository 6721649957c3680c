package models

// AnalysisTask represents an analysis task for trajectory processing
type AnalysisTask struct {
	ID int64 `json:"id" db:"id"`

	// Task identification
	SkillName string `json:"skill_name" db:"skill_name"` // Which skill to run
	TaskType  string `json:"task_type" db:"task_type"`   // INCREMENTAL, FULL_RECOMPUTE

	// Status
	Status          string  `json:"status" db:"status"` // pending, running, completed, failed
	ProgressPercent float64 `json:"progress_percent" db:"progress_percent"`

	// Input parameters
	ParamsJSON *string `json:"params_json,omitempty" db:"params_json"`

	// Execution info
	TotalPoints     int `json:"total_points" db:"total_points"`
	ProcessedPoints int `json:"processed_points" db:"processed_points"`
	FailedPoints    int `json:"failed_points" db:"failed_points"`

	// Results
	ResultSummary *string `json:"result_summary,omitempty" db:"result_summary"` // JSON object with summary statistics
	ErrorMessage  *string `json:"error_message,omitempty" db:"error_message"`

	// Metadata (Unix seconds)
	CreatedBy   string `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
	StartedAt   *int64 `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *int64 `json:"completed_at,omitempty" db:"completed_at"`
}

// TaskType constants
const (
	TaskTypeIncremental   = "INCREMENTAL"
	TaskTypeFullRecompute = "FULL_RECOMPUTE"
)

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)
