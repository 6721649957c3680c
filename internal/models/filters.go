package models

// TrackPointFilter represents filter parameters for querying track points
type TrackPointFilter struct {
	StartTime    int64  `form:"startTime"` // Unix milliseconds
	EndTime      int64  `form:"endTime"`   // Unix milliseconds
	ImportID     string `form:"importId"`
	ActivityType string `form:"activityType"`
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// StayFilter represents filter parameters for querying stay segments
type StayFilter struct {
	TaskID      int64  `form:"taskId"`
	Geohash     string `form:"geohash"`     // Prefix match on the center cell
	MinDuration int64  `form:"minDuration"` // Seconds
	StartTime   int64  `form:"startTime"`   // Unix milliseconds
	EndTime     int64  `form:"endTime"`     // Unix milliseconds
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}

// normalizePage applies the default page and clamps the page size to [1, 1000]
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}

// Normalize applies pagination defaults
func (f *TrackPointFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// Normalize applies pagination defaults
func (f *StayFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// TotalPages returns the page count for total rows
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
