package models

// StaysResponse represents a paginated response of stay segments
type StaysResponse struct {
	Data       []StaySegment `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}
