package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
)

// Analyzer is the interface that all analysis skills must implement
type Analyzer interface {
	// Analyze performs the analysis for a given task and returns a
	// JSON-serialisable summary. Status transitions belong to the caller.
	Analyze(ctx context.Context, task *models.AnalysisTask) (interface{}, error)

	// GetName returns the name of the analyzer
	GetName() string
}

// Deps is what an analyzer factory may draw on
type Deps struct {
	Tracks *repository.TrackRepository
	Stays  *repository.StayRepository
	Tasks  *repository.AnalysisTaskRepository
	Logger zerolog.Logger

	// StayDefaults apply when a task does not override the thresholds
	StayDefaults staypoint.Options
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Deps
	Name string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(deps Deps, name string) *BaseAnalyzer {
	deps.Logger = deps.Logger.With().Str("skill", name).Logger()
	return &BaseAnalyzer{
		Deps: deps,
		Name: name,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// UpdateTaskProgress updates the progress of an analysis task in the database
func (a *BaseAnalyzer) UpdateTaskProgress(ctx context.Context, taskID int64, processed, total int) error {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100.0
	}
	return a.Tasks.UpdateProgress(ctx, taskID, total, processed, percent)
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(deps Deps) Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer retrieves an analyzer instance for a skill name, nil if unknown
func GetAnalyzer(skillName string, deps Deps) Analyzer {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(deps)
}

// IsRegistered checks if a skill has an analyzer
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists registered skill names in sorted order
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
