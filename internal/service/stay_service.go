package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
	"github.com/jengzang/staypoint-backend-go/internal/spatial"
	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
	"github.com/jengzang/staypoint-backend-go/internal/timesegment"
)

// StayService handles business logic for stay segments
type StayService struct {
	repo     *repository.StayRepository
	defaults staypoint.Options
}

// NewStayService creates a new stay service
func NewStayService(repo *repository.StayRepository, defaults staypoint.Options) *StayService {
	return &StayService{repo: repo, defaults: defaults}
}

// DetectRequest is an ad hoc detection over caller-supplied samples
type DetectRequest struct {
	Positions   [][2]float64 // [lat, lon]
	Timestamps  []time.Time
	DistanceKm  *float64
	MinDuration *time.Duration
}

// DetectResult carries the labels and the stays they describe
type DetectResult struct {
	Labels  []int             `json:"labels"`
	Stays   []staypoint.Stay  `json:"stays"`
	Sorted  bool              `json:"sorted"` // false when timestamps were not ascending
	Options staypoint.Options `json:"options"`
}

// Detect labels the given samples without touching the database
func (s *StayService) Detect(ctx context.Context, req DetectRequest) (*DetectResult, error) {
	opts := s.defaults
	if req.DistanceKm != nil {
		opts.DistanceKm = *req.DistanceKm
	}
	if req.MinDuration != nil {
		opts.MinDuration = *req.MinDuration
	}
	if opts.DistanceKm < 0 || opts.MinDuration < 0 {
		return nil, fmt.Errorf("%w: thresholds must not be negative", ErrInvalidInput)
	}

	positions := make([]spatial.Position, len(req.Positions))
	for i, pair := range req.Positions {
		positions[i] = spatial.PositionFromPair(pair)
	}

	labels, err := staypoint.DetectContext(ctx, positions, req.Timestamps, opts.DistanceKm, opts.MinDuration)
	if err != nil {
		var mismatch *staypoint.LengthMismatchError
		if errors.As(err, &mismatch) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}

	stays := staypoint.Summarize(positions, req.Timestamps, labels)
	if stays == nil {
		stays = []staypoint.Stay{}
	}

	return &DetectResult{
		Labels:  labels,
		Stays:   stays,
		Sorted:  staypoint.IsSorted(req.Timestamps, true),
		Options: opts,
	}, nil
}

// LabelTimeSegments names each timestamp with the last interval containing it
func (s *StayService) LabelTimeSegments(timestamps []time.Time, intervals []timesegment.Interval) ([]string, error) {
	labels, err := timesegment.Label(timestamps, intervals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return labels, nil
}

// GetStays retrieves stay segments with filtering and pagination
func (s *StayService) GetStays(ctx context.Context, filter models.StayFilter) (*models.StaysResponse, error) {
	filter.Normalize()

	stays, total, err := s.repo.GetStays(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get stays: %w", err)
	}
	if stays == nil {
		stays = []models.StaySegment{}
	}

	return &models.StaysResponse{
		Data:       stays,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: models.TotalPages(total, filter.PageSize),
	}, nil
}

// GetStayByID retrieves a single stay segment by ID
func (s *StayService) GetStayByID(ctx context.Context, id int64) (*models.StaySegment, error) {
	stay, err := s.repo.GetStayByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stay: %w", err)
	}
	if stay == nil {
		return nil, fmt.Errorf("stay %d: %w", id, ErrNotFound)
	}
	return stay, nil
}
