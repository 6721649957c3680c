package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/staypoint-backend-go/internal/database"
	"github.com/jengzang/staypoint-backend-go/internal/locationhistory"
	"github.com/jengzang/staypoint-backend-go/internal/models"
)

const trackPointColumns = `id, import_id, ts, lat, lon, accuracy, activity_type, activity_confidence, activity_ts`

// TrackRepository handles database operations for track points
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// InsertBatch stores samples of one import in a single transaction
func (r *TrackRepository) InsertBatch(ctx context.Context, importID string, samples []locationhistory.Sample) error {
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO track_points
			(import_id, ts, lat, lon, accuracy, activity_type, activity_confidence, activity_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, s := range samples {
			var accuracy sql.NullFloat64
			if s.Accuracy != nil {
				accuracy = sql.NullFloat64{Float64: *s.Accuracy, Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				importID, s.Timestamp.UnixMilli(), s.Lat, s.Lon, accuracy,
				s.ActivityType, s.ActivityConfidence, s.ActivityTimestamp.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert track point %d: %w", i, err)
			}
		}
		return nil
	})
}

func buildTrackConditions(filter models.TrackPointFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartTime > 0 {
		conditions = append(conditions, "ts >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "ts <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.ImportID != "" {
		conditions = append(conditions, "import_id = ?")
		args = append(args, filter.ImportID)
	}
	if filter.ActivityType != "" {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, filter.ActivityType)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetTrackPoints retrieves track points with filtering and pagination, oldest first
func (r *TrackRepository) GetTrackPoints(ctx context.Context, filter models.TrackPointFilter) ([]models.TrackPoint, int64, error) {
	where, args := buildTrackConditions(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_points"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count track points: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.PageSize
	query := "SELECT " + trackPointColumns + " FROM track_points" + where + " ORDER BY ts ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	points, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return points, total, nil
}

// ListOrdered returns every track point in the time range in ascending time order.
// Zero bounds are open. This ordering is what stay detection relies on.
func (r *TrackRepository) ListOrdered(ctx context.Context, startTime, endTime int64) ([]models.TrackPoint, error) {
	where, args := buildTrackConditions(models.TrackPointFilter{StartTime: startTime, EndTime: endTime})
	return r.query(ctx, "SELECT "+trackPointColumns+" FROM track_points"+where+" ORDER BY ts ASC, id ASC", args...)
}

// CountAllPoints returns the number of stored track points
func (r *TrackRepository) CountAllPoints(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_points").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count track points: %w", err)
	}
	return count, nil
}

func (r *TrackRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.TrackPoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	var points []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		var accuracy sql.NullFloat64
		err := rows.Scan(
			&p.ID, &p.ImportID, &p.Timestamp, &p.Latitude, &p.Longitude, &accuracy,
			&p.ActivityType, &p.ActivityConfidence, &p.ActivityTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track point: %w", err)
		}
		if accuracy.Valid {
			acc := accuracy.Float64
			p.Accuracy = &acc
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track points: %w", err)
	}
	return points, nil
}
