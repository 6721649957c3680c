package models

// StaySegment represents a persisted stay detection result
type StaySegment struct {
	ID     int64 `json:"id" db:"id"`
	TaskID int64 `json:"task_id" db:"task_id"` // Analysis task that produced it
	Label  int   `json:"label" db:"label"`     // Stay id within the task, in discovery order

	// Temporal info
	StartTime       int64 `json:"start_time" db:"start_ts"`              // Unix milliseconds
	EndTime         int64 `json:"end_time" db:"end_ts"`                  // Unix milliseconds
	DurationSeconds int64 `json:"duration_seconds" db:"duration_s"`

	// Spatial info (center point)
	CenterLat    float64 `json:"center_lat" db:"center_lat"`
	CenterLon    float64 `json:"center_lon" db:"center_lon"`
	RadiusMeters float64 `json:"radius_meters" db:"radius_m"`
	Geohash      string  `json:"geohash" db:"geohash"` // Cell of the center, sized to the distance threshold

	PointCount   int   `json:"point_count" db:"point_count"`
	FirstPointID int64 `json:"first_point_id" db:"first_point_id"` // Foreign key to track point
	LastPointID  int64 `json:"last_point_id" db:"last_point_id"`   // Foreign key to track point

	// Thresholds the stay was detected with
	DistanceKm         float64 `json:"distance_km" db:"distance_km"`
	MinDurationSeconds int64   `json:"min_duration_seconds" db:"min_duration_s"`

	CreatedAt int64 `json:"created_at" db:"created_at"` // Unix seconds
}
