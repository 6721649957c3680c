// Package staypoint finds stay points in a chronologically ordered
// sequence of positions with the distance/time double threshold of
// Li et al., "Mining user similarity based on location history" (2008).
package staypoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

// Transit labels samples that belong to no stay.
const Transit = -1

// ErrLengthMismatch is returned when positions and timestamps are not aligned.
var ErrLengthMismatch = errors.New("positions and timestamps differ in length")

// LengthMismatchError reports the lengths of misaligned inputs
type LengthMismatchError struct {
	Positions  int
	Timestamps int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%d positions but %d timestamps", e.Positions, e.Timestamps)
}

// Unwrap lets errors.Is match ErrLengthMismatch
func (e *LengthMismatchError) Unwrap() error {
	return ErrLengthMismatch
}

// Detect labels each sample with the id of the stay it belongs to, or Transit.
//
// Positions must be sorted oldest first and timestamps aligned with them.
// Order is not checked. A run [i, j) is a stay when every sample in it lies
// within distanceKm of sample i, sample j is the first one beyond it, and
// t[j]-t[i] is strictly greater than minDuration. Stay ids count up from 0
// in scan order.
func Detect(positions []spatial.Position, timestamps []time.Time, distanceKm float64, minDuration time.Duration) ([]int, error) {
	return DetectContext(context.Background(), positions, timestamps, distanceKm, minDuration)
}

// DetectContext is Detect with a cancellation check before each candidate
// center. On cancellation the labels assigned so far are returned with ctx.Err().
func DetectContext(ctx context.Context, positions []spatial.Position, timestamps []time.Time, distanceKm float64, minDuration time.Duration) ([]int, error) {
	return detect(ctx, positions, timestamps, distanceKm, minDuration, nil)
}

// ProgressFunc receives the scan cursor after every candidate center
type ProgressFunc func(cursor, total int)

func detect(ctx context.Context, positions []spatial.Position, timestamps []time.Time, distanceKm float64, minDuration time.Duration, progress ProgressFunc) ([]int, error) {
	if len(positions) != len(timestamps) {
		return nil, &LengthMismatchError{Positions: len(positions), Timestamps: len(timestamps)}
	}

	n := len(positions)
	labels := make([]int, n)
	for k := range labels {
		labels[k] = Transit
	}

	stayID := 0
	i := 0
	for i < n {
		if err := ctx.Err(); err != nil {
			return labels, err
		}

		closed := false
		for j := i + 1; j < n; j++ {
			if spatial.Haversine(positions[i], positions[j]) <= distanceKm {
				continue
			}

			// j is the first sample outside the region centered on i
			if timestamps[j].Sub(timestamps[i]) > minDuration {
				for k := i; k < j; k++ {
					labels[k] = stayID
				}
				stayID++
				i = j
				closed = true
			}
			break
		}

		if !closed {
			i++
		}

		if progress != nil {
			progress(i, n)
		}
	}

	return labels, nil
}

// IsSorted reports whether timestamps are in ascending (or descending) order.
// Equal neighbours count as sorted either way.
func IsSorted(timestamps []time.Time, ascending bool) bool {
	for k := 0; k+1 < len(timestamps); k++ {
		if ascending && timestamps[k+1].Before(timestamps[k]) {
			return false
		}
		if !ascending && timestamps[k+1].After(timestamps[k]) {
			return false
		}
	}
	return true
}
