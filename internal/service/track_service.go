package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/locationhistory"
	"github.com/jengzang/staypoint-backend-go/internal/models"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

// TrackService handles business logic for track points
type TrackService struct {
	trackRepo *repository.TrackRepository
	logger    zerolog.Logger
}

// NewTrackService creates a new track service
func NewTrackService(trackRepo *repository.TrackRepository, logger zerolog.Logger) *TrackService {
	return &TrackService{
		trackRepo: trackRepo,
		logger:    logger.With().Str("component", "track_service").Logger(),
	}
}

// Import parses a Records.json document and stores its samples under a new import id
func (s *TrackService) Import(ctx context.Context, r io.Reader, opts locationhistory.Options) (*models.ImportResult, error) {
	samples, err := locationhistory.Parse(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	result := &models.ImportResult{
		ImportID:   uuid.NewString(),
		PointCount: len(samples),
	}
	if len(samples) == 0 {
		return result, nil
	}

	if err := s.trackRepo.InsertBatch(ctx, result.ImportID, samples); err != nil {
		return nil, fmt.Errorf("failed to store track points: %w", err)
	}

	result.StartTime = samples[0].Timestamp.UnixMilli()
	result.EndTime = samples[len(samples)-1].Timestamp.UnixMilli()
	result.MinLat, result.MinLon, result.MaxLat, result.MaxLon = spatial.BoundingBox(locationhistory.Positions(samples))

	s.logger.Info().
		Str("import_id", result.ImportID).
		Int("points", result.PointCount).
		Msg("imported location history")

	return result, nil
}

// GetTrackPoints retrieves track points with filtering and pagination
func (s *TrackService) GetTrackPoints(ctx context.Context, filter models.TrackPointFilter) (*models.TrackPointsResponse, error) {
	filter.Normalize()

	points, total, err := s.trackRepo.GetTrackPoints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get track points: %w", err)
	}
	if points == nil {
		points = []models.TrackPoint{}
	}

	return &models.TrackPointsResponse{
		Data:       points,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: models.TotalPages(total, filter.PageSize),
	}, nil
}
