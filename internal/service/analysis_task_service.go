package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/analysis"
	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
)

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	repo   *repository.AnalysisTaskRepository
	deps   analysis.Deps
	logger zerolog.Logger

	// Detached from request contexts; Shutdown cancels it
	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	running map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service
func NewAnalysisTaskService(deps analysis.Deps) *AnalysisTaskService {
	ctx, stop := context.WithCancel(context.Background())
	return &AnalysisTaskService{
		repo:    deps.Tasks,
		deps:    deps,
		logger:  deps.Logger.With().Str("component", "analysis_tasks").Logger(),
		baseCtx: ctx,
		stop:    stop,
		running: make(map[int64]context.CancelFunc),
	}
}

// CreateTask creates a new analysis task and starts its analyzer in the background
func (s *AnalysisTaskService) CreateTask(ctx context.Context, skillName string, taskType string, params map[string]interface{}, createdBy string) (*models.AnalysisTask, error) {
	// Validate skill name
	if !analysis.IsRegistered(skillName) {
		return nil, fmt.Errorf("%w: unknown skill %q", ErrInvalidInput, skillName)
	}

	// Validate task type
	if taskType == "" {
		taskType = models.TaskTypeFullRecompute
	}
	if taskType != models.TaskTypeIncremental && taskType != models.TaskTypeFullRecompute {
		return nil, fmt.Errorf("%w: invalid task type %q", ErrInvalidInput, taskType)
	}

	// Serialize params to JSON
	var paramsJSON *string
	if len(params) > 0 {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to serialize params: %v", ErrInvalidInput, err)
		}
		jsonStr := string(paramsBytes)
		paramsJSON = &jsonStr
	}

	count, err := s.deps.Tracks.CountAllPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}

	// Create task record
	task := &models.AnalysisTask{
		SkillName:   skillName,
		TaskType:    taskType,
		Status:      models.TaskStatusPending,
		TotalPoints: count,
		ParamsJSON:  paramsJSON,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.running[task.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(runCtx, *task)

	return task, nil
}

// execute runs a Go-native analyzer and records the outcome
func (s *AnalysisTaskService) execute(ctx context.Context, task models.AnalysisTask) {
	defer s.wg.Done()
	defer s.forget(task.ID)

	log := s.logger.With().Int64("task_id", task.ID).Str("skill", task.SkillName).Logger()
	log.Info().Str("type", task.TaskType).Msg("starting analysis")

	// Status writes use a fresh context so a cancelled run can still be recorded
	bg := context.Background()

	analyzer := analysis.GetAnalyzer(task.SkillName, s.deps)
	if analyzer == nil {
		s.fail(bg, log, task.ID, fmt.Sprintf("unknown skill: %s", task.SkillName))
		return
	}

	if err := s.repo.MarkAsRunning(bg, task.ID); err != nil {
		log.Error().Err(err).Msg("failed to mark task as running")
		return
	}

	summary, err := analyzer.Analyze(ctx, &task)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if mErr := s.repo.MarkAsCancelled(bg, task.ID, "task cancelled"); mErr != nil {
				log.Error().Err(mErr).Msg("failed to mark task as cancelled")
			}
			log.Warn().Msg("analysis cancelled")
			return
		}
		s.fail(bg, log, task.ID, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	body, err := json.Marshal(summary)
	if err != nil {
		s.fail(bg, log, task.ID, fmt.Sprintf("failed to encode result: %v", err))
		return
	}
	if err := s.repo.MarkAsCompleted(bg, task.ID, string(body)); err != nil {
		log.Error().Err(err).Msg("failed to mark task as completed")
		return
	}

	log.Info().RawJSON("summary", body).Msg("analysis completed")
}

func (s *AnalysisTaskService) fail(ctx context.Context, log zerolog.Logger, id int64, msg string) {
	log.Error().Str("reason", msg).Msg("analysis failed")
	if err := s.repo.MarkAsFailed(ctx, id, msg); err != nil {
		log.Error().Err(err).Msg("failed to mark task as failed")
	}
}

func (s *AnalysisTaskService) forget(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("analysis task %d: %w", id, ErrNotFound)
	}
	return task, nil
}

// ListTasks retrieves all tasks with optional filters
func (s *AnalysisTaskService) ListTasks(ctx context.Context, skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, skillName, status, limit, offset)
}

// CancelTask stops a pending or running task. The analyzer observes the
// cancellation at its next check and the task ends as cancelled.
func (s *AnalysisTaskService) CancelTask(ctx context.Context, id int64) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRunning {
		return fmt.Errorf("%w: task is not running (status: %s)", ErrConflict, task.Status)
	}

	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
		return nil
	}

	// Left over from a previous process
	return s.repo.MarkAsCancelled(ctx, id, "task cancelled by user")
}

// DeleteTask removes a finished task together with its results
func (s *AnalysisTaskService) DeleteTask(ctx context.Context, id int64) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusRunning || task.Status == models.TaskStatusPending {
		return fmt.Errorf("%w: cancel the task before deleting it", ErrConflict)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("analysis task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Wait blocks until every started analysis has finished
func (s *AnalysisTaskService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running analyses and waits for them to record their status
func (s *AnalysisTaskService) Shutdown() {
	s.stop()
	s.wg.Wait()
}
