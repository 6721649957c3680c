package models

// TrackPoint represents one imported location history sample
type TrackPoint struct {
	ID                 int64    `json:"id" db:"id"`
	ImportID           string   `json:"importId" db:"import_id"`
	Timestamp          int64    `json:"timestamp" db:"ts"` // Unix milliseconds
	Latitude           float64  `json:"latitude" db:"lat"`
	Longitude          float64  `json:"longitude" db:"lon"`
	Accuracy           *float64 `json:"accuracy,omitempty" db:"accuracy"` // Meters, nil when unknown
	ActivityType       string   `json:"activityType" db:"activity_type"`
	ActivityConfidence int      `json:"activityConfidence" db:"activity_confidence"`
	ActivityTimestamp  int64    `json:"activityTimestamp" db:"activity_ts"` // Unix milliseconds
}

// TrackPointsResponse represents a paginated response of track points
type TrackPointsResponse struct {
	Data       []TrackPoint `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// ImportResult summarises one location history import
type ImportResult struct {
	ImportID   string  `json:"importId"`
	PointCount int     `json:"pointCount"`
	StartTime  int64   `json:"startTime,omitempty"` // Unix milliseconds
	EndTime    int64   `json:"endTime,omitempty"`   // Unix milliseconds
	MinLat     float64 `json:"minLat"`
	MinLon     float64 `json:"minLon"`
	MaxLat     float64 `json:"maxLat"`
	MaxLon     float64 `json:"maxLon"`
}
