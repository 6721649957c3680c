package staypoint

import (
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

// Stay aggregates the samples sharing one stay label
type Stay struct {
	Label        int              `json:"label"`
	FirstIndex   int              `json:"first_index"`
	LastIndex    int              `json:"last_index"`
	PointCount   int              `json:"point_count"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Duration     time.Duration    `json:"duration"`
	Center       spatial.Position `json:"center"`
	RadiusMeters float64          `json:"radius_meters"`
}

// Summarize groups labelled samples into stays, in label order.
// Labels are expected to come from Detect, so every stay is one contiguous run.
// Inputs of different lengths are summarised over their common prefix.
func Summarize(positions []spatial.Position, timestamps []time.Time, labels []int) []Stay {
	n := min(len(positions), len(timestamps), len(labels))

	var stays []Stay
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		points := positions[start:end]
		center := spatial.Centroid(points)
		stays = append(stays, Stay{
			Label:        labels[start],
			FirstIndex:   start,
			LastIndex:    end - 1,
			PointCount:   end - start,
			Start:        timestamps[start],
			End:          timestamps[end-1],
			Duration:     timestamps[end-1].Sub(timestamps[start]),
			Center:       center,
			RadiusMeters: spatial.MaxDistanceFrom(center, points),
		})
		start = -1
	}

	for k := 0; k < n; k++ {
		if start >= 0 && labels[k] != labels[start] {
			flush(k)
		}
		if start < 0 && labels[k] != Transit {
			start = k
		}
	}
	flush(n)

	return stays
}
