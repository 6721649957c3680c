// Package staydetection runs stay point detection over the stored track
// and persists one stay segment per detected stay.
package staydetection

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/jengzang/staypoint-backend-go/internal/analysis"
	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/spatial"
	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
	"github.com/jengzang/staypoint-backend-go/internal/stats"
)

// SkillName identifies this analyzer in task requests
const SkillName = "stay_detection"

// Params are the task parameters accepted in params_json
type Params struct {
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	MinDuration string   `json:"min_duration,omitempty"` // Go duration, e.g. "15m"
	StartTime   int64    `json:"start_time,omitempty"`   // Unix milliseconds, 0 for open
	EndTime     int64    `json:"end_time,omitempty"`     // Unix milliseconds, 0 for open
}

// Options resolves the thresholds against defaults
func (p Params) Options(defaults staypoint.Options) (staypoint.Options, error) {
	opts := defaults
	if p.DistanceKm != nil {
		if *p.DistanceKm < 0 {
			return opts, fmt.Errorf("distance_km must not be negative")
		}
		opts.DistanceKm = *p.DistanceKm
	}
	if p.MinDuration != "" {
		d, err := time.ParseDuration(p.MinDuration)
		if err != nil {
			return opts, fmt.Errorf("invalid min_duration: %w", err)
		}
		if d < 0 {
			return opts, fmt.Errorf("min_duration must not be negative")
		}
		opts.MinDuration = d
	}
	return opts, nil
}

// ParseParams decodes params_json; nil or empty yields zero Params
func ParseParams(raw *string) (Params, error) {
	var p Params
	if raw == nil || *raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(*raw), &p); err != nil {
		return p, fmt.Errorf("invalid params: %w", err)
	}
	return p, nil
}

// Summary is stored as the task's result_summary
type Summary struct {
	Points          int     `json:"points"`
	Stays           int     `json:"stays"`
	StayPoints      int     `json:"stay_points"`
	TransitPoints   int     `json:"transit_points"`
	TotalStaySecs   int64   `json:"total_stay_seconds"`
	DistanceKm      float64 `json:"distance_km"`
	MinDurationSecs int64   `json:"min_duration_seconds"`

	DurationSecs stats.Distribution `json:"duration_seconds"`
	RadiusMeters stats.Distribution `json:"radius_meters"`
}

// Analyzer detects stays in the stored track
type Analyzer struct {
	*analysis.BaseAnalyzer
}

// New creates a new stay detection analyzer
func New(deps analysis.Deps) analysis.Analyzer {
	return &Analyzer{
		BaseAnalyzer: analysis.NewBaseAnalyzer(deps, SkillName),
	}
}

// Analyze loads the track oldest first, labels it and replaces the task's stay segments
func (a *Analyzer) Analyze(ctx context.Context, task *models.AnalysisTask) (interface{}, error) {
	params, err := ParseParams(task.ParamsJSON)
	if err != nil {
		return nil, err
	}
	opts, err := params.Options(a.StayDefaults)
	if err != nil {
		return nil, err
	}

	a.Logger.Info().
		Int64("task_id", task.ID).
		Str("mode", task.TaskType).
		Float64("distance_km", opts.DistanceKm).
		Dur("min_duration", opts.MinDuration).
		Msg("starting stay detection")

	points, err := a.Tracks.ListOrdered(ctx, params.StartTime, params.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load track points: %w", err)
	}

	positions := make([]spatial.Position, len(points))
	timestamps := make([]time.Time, len(points))
	for i, p := range points {
		positions[i] = spatial.Position{Lat: p.Latitude, Lon: p.Longitude}
		timestamps[i] = time.UnixMilli(p.Timestamp).UTC()
	}

	if err := a.UpdateTaskProgress(ctx, task.ID, 0, len(points)); err != nil {
		return nil, fmt.Errorf("failed to update task progress: %w", err)
	}

	tracker := a.NewProgressTracker(ctx, task.ID, len(points)/100)
	detector := staypoint.NewDetector(opts).WithProgress(tracker.Report)
	if err := detector.FitContext(ctx, positions, timestamps); err != nil {
		return nil, fmt.Errorf("stay detection interrupted at %d/%d: %w", tracker.Processed(), len(points), err)
	}
	labels := detector.Labels()

	stays := staypoint.Summarize(positions, timestamps, labels)
	segments := toSegments(task.ID, points, stays, opts)
	if err := a.Stays.ReplaceForTask(ctx, task.ID, segments); err != nil {
		return nil, fmt.Errorf("failed to save stay segments: %w", err)
	}

	summary := Summary{
		Points:          len(points),
		Stays:           len(stays),
		DistanceKm:      opts.DistanceKm,
		MinDurationSecs: int64(opts.MinDuration / time.Second),
	}
	durations := make([]float64, len(stays))
	radii := make([]float64, len(stays))
	for i, s := range stays {
		summary.StayPoints += s.PointCount
		summary.TotalStaySecs += int64(s.Duration / time.Second)
		durations[i] = s.Duration.Seconds()
		radii[i] = s.RadiusMeters
	}
	summary.TransitPoints = summary.Points - summary.StayPoints
	summary.DurationSecs = stats.Describe(durations)
	summary.RadiusMeters = stats.Describe(radii)

	a.Logger.Info().
		Int64("task_id", task.ID).
		Int("points", summary.Points).
		Int("stays", summary.Stays).
		Msg("stay detection completed")

	return summary, nil
}

func toSegments(taskID int64, points []models.TrackPoint, stays []staypoint.Stay, opts staypoint.Options) []models.StaySegment {
	precision := spatial.GeohashPrecisionFor(opts.DistanceKm * 1000)
	segments := make([]models.StaySegment, 0, len(stays))
	for _, s := range stays {
		segments = append(segments, models.StaySegment{
			TaskID:             taskID,
			Label:              s.Label,
			StartTime:          s.Start.UnixMilli(),
			EndTime:            s.End.UnixMilli(),
			DurationSeconds:    int64(s.Duration / time.Second),
			CenterLat:          s.Center.Lat,
			CenterLon:          s.Center.Lon,
			RadiusMeters:       s.RadiusMeters,
			Geohash:            spatial.Geohash(s.Center, precision),
			PointCount:         s.PointCount,
			FirstPointID:       points[s.FirstIndex].ID,
			LastPointID:        points[s.LastIndex].ID,
			DistanceKm:         opts.DistanceKm,
			MinDurationSeconds: int64(opts.MinDuration / time.Second),
		})
	}
	return segments
}

// Register the analyzer
func init() {
	analysis.RegisterAnalyzer(SkillName, New)
}
