package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/internal/timesegment"
	"github.com/jengzang/staypoint-backend-go/pkg/response"
)

// StayPointHandler serves stateless detection and time segmentation
type StayPointHandler struct {
	service *service.StayService
}

// NewStayPointHandler creates a new stay point handler
func NewStayPointHandler(service *service.StayService) *StayPointHandler {
	return &StayPointHandler{service: service}
}

// DetectRequest is the body of POST /api/v1/staypoints/detect
type DetectRequest struct {
	Positions   [][2]float64 `json:"positions"`  // [lat, lon]
	Timestamps  []time.Time  `json:"timestamps"` // RFC 3339, oldest first
	DistanceKm  *float64     `json:"distance_km"`
	MinDuration string       `json:"min_duration"` // Go duration, e.g. "15m"
}

// StayView is one detected stay in API form
type StayView struct {
	Label           int        `json:"label"`
	FirstIndex      int        `json:"first_index"`
	LastIndex       int        `json:"last_index"`
	PointCount      int        `json:"point_count"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	DurationSeconds float64    `json:"duration_seconds"`
	Center          [2]float64 `json:"center"` // [lat, lon]
	RadiusMeters    float64    `json:"radius_meters"`
}

// DetectResponse is the data of a detection answer
type DetectResponse struct {
	Labels             []int      `json:"labels"`
	Stays              []StayView `json:"stays"`
	Sorted             bool       `json:"sorted"`
	DistanceKm         float64    `json:"distance_km"`
	MinDurationSeconds float64    `json:"min_duration_seconds"`
}

// Detect handles POST /api/v1/staypoints/detect
func (h *StayPointHandler) Detect(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := service.DetectRequest{
		Positions:  req.Positions,
		Timestamps: req.Timestamps,
		DistanceKm: req.DistanceKm,
	}
	if req.MinDuration != "" {
		d, err := time.ParseDuration(req.MinDuration)
		if err != nil {
			response.BadRequest(c, "Invalid min_duration: "+err.Error())
			return
		}
		in.MinDuration = &d
	}

	result, err := h.service.Detect(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	out := DetectResponse{
		Labels:             result.Labels,
		Stays:              make([]StayView, 0, len(result.Stays)),
		Sorted:             result.Sorted,
		DistanceKm:         result.Options.DistanceKm,
		MinDurationSeconds: result.Options.MinDuration.Seconds(),
	}
	for _, s := range result.Stays {
		out.Stays = append(out.Stays, StayView{
			Label:           s.Label,
			FirstIndex:      s.FirstIndex,
			LastIndex:       s.LastIndex,
			PointCount:      s.PointCount,
			Start:           s.Start,
			End:             s.End,
			DurationSeconds: s.Duration.Seconds(),
			Center:          s.Center.Pair(),
			RadiusMeters:    s.RadiusMeters,
		})
	}

	response.Success(c, out)
}

// IntervalRequest is one named period; Min and Max are Go durations before RelativeTo
type IntervalRequest struct {
	Name       string    `json:"name"`
	Min        string    `json:"min"`
	Max        string    `json:"max"`
	RelativeTo time.Time `json:"relative_to"`
}

// TimeSegmentRequest is the body of POST /api/v1/timesegments
type TimeSegmentRequest struct {
	Timestamps []time.Time       `json:"timestamps"`
	Intervals  []IntervalRequest `json:"intervals"`
}

// TimeSegments handles POST /api/v1/timesegments
func (h *StayPointHandler) TimeSegments(c *gin.Context) {
	var req TimeSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	intervals := make([]timesegment.Interval, len(req.Intervals))
	for i, iv := range req.Intervals {
		lo, err := time.ParseDuration(iv.Min)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("interval %d: invalid min: %v", i, err))
			return
		}
		hi, err := time.ParseDuration(iv.Max)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("interval %d: invalid max: %v", i, err))
			return
		}
		intervals[i] = timesegment.Interval{Name: iv.Name, Min: lo, Max: hi, RelativeTo: iv.RelativeTo}
	}

	labels, err := h.service.LabelTimeSegments(req.Timestamps, intervals)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"labels": labels})
}
