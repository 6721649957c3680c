package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/database"
	"github.com/jengzang/staypoint-backend-go/internal/models"
)

const staySegmentColumns = `id, task_id, label, start_ts, end_ts, duration_s,
		center_lat, center_lon, radius_m, geohash, point_count, first_point_id, last_point_id,
		distance_km, min_duration_s, created_at`

// StayRepository handles database operations for stay segments
type StayRepository struct {
	db *sql.DB
}

// NewStayRepository creates a new stay repository
func NewStayRepository(db *sql.DB) *StayRepository {
	return &StayRepository{db: db}
}

// ReplaceForTask deletes the stays of a task and inserts the given ones atomically
func (r *StayRepository) ReplaceForTask(ctx context.Context, taskID int64, stays []models.StaySegment) error {
	now := time.Now().Unix()
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM stay_segments WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("failed to clear stay segments: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO stay_segments (
			task_id, label, start_ts, end_ts, duration_s,
			center_lat, center_lon, radius_m, geohash, point_count, first_point_id, last_point_id,
			distance_km, min_duration_s, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range stays {
			_, err := stmt.ExecContext(ctx,
				taskID, s.Label, s.StartTime, s.EndTime, s.DurationSeconds,
				s.CenterLat, s.CenterLon, s.RadiusMeters, s.Geohash, s.PointCount, s.FirstPointID, s.LastPointID,
				s.DistanceKm, s.MinDurationSeconds, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert stay segment %d: %w", s.Label, err)
			}
		}
		return nil
	})
}

// GetStays retrieves stay segments with filtering and pagination
func (r *StayRepository) GetStays(ctx context.Context, filter models.StayFilter) ([]models.StaySegment, int64, error) {
	var conditions []string
	var args []interface{}

	// Add filters
	if filter.TaskID > 0 {
		conditions = append(conditions, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Geohash != "" {
		conditions = append(conditions, "geohash LIKE ?")
		args = append(args, filter.Geohash+"%")
	}
	if filter.MinDuration > 0 {
		conditions = append(conditions, "duration_s >= ?")
		args = append(args, filter.MinDuration)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "start_ts >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "end_ts <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stay_segments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stay segments: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + staySegmentColumns + " FROM stay_segments" + where + " ORDER BY start_ts DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query stay segments: %w", err)
	}
	defer rows.Close()

	var stays []models.StaySegment
	for rows.Next() {
		s, err := scanStay(rows)
		if err != nil {
			return nil, 0, err
		}
		stays = append(stays, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate stay segments: %w", err)
	}

	return stays, total, nil
}

// GetStayByID retrieves a single stay segment by ID, nil when absent
func (r *StayRepository) GetStayByID(ctx context.Context, id int64) (*models.StaySegment, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+staySegmentColumns+" FROM stay_segments WHERE id = ?", id)
	s, err := scanStay(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStay(row rowScanner) (*models.StaySegment, error) {
	var s models.StaySegment
	err := row.Scan(
		&s.ID, &s.TaskID, &s.Label, &s.StartTime, &s.EndTime, &s.DurationSeconds,
		&s.CenterLat, &s.CenterLon, &s.RadiusMeters, &s.Geohash, &s.PointCount, &s.FirstPointID, &s.LastPointID,
		&s.DistanceKm, &s.MinDurationSeconds, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stay segment: %w", err)
	}
	return &s, nil
}
