// Package timesegment labels timestamps with named periods defined
// relative to an anchor instant.
package timesegment

import (
	"fmt"
	"time"
)

// Interval names the period whose distance before RelativeTo lies in [Min, Max].
// A sample at ts matches when Min <= RelativeTo-ts <= Max, so positive
// bounds describe the past and negative bounds the future.
type Interval struct {
	Name       string        `json:"name"`
	Min        time.Duration `json:"min"`
	Max        time.Duration `json:"max"`
	RelativeTo time.Time     `json:"relative_to"`
}

// IntervalError reports an invalid interval definition
type IntervalError struct {
	Index  int
	Field  string
	Reason string
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("interval %d: %s %s", e.Index, e.Field, e.Reason)
}

// Validate checks every interval has a name, an anchor and Min <= Max
func Validate(intervals []Interval) error {
	for i, iv := range intervals {
		if iv.Name == "" {
			return &IntervalError{Index: i, Field: "name", Reason: "is required"}
		}
		if iv.RelativeTo.IsZero() {
			return &IntervalError{Index: i, Field: "relative_to", Reason: "is required"}
		}
		if iv.Min > iv.Max {
			return &IntervalError{Index: i, Field: "min", Reason: "must not exceed max"}
		}
	}
	return nil
}

// Label returns the period name of each timestamp, "" when none matches.
// Intervals are applied in order, so later ones win on overlap.
func Label(timestamps []time.Time, intervals []Interval) ([]string, error) {
	if err := Validate(intervals); err != nil {
		return nil, err
	}

	periods := make([]string, len(timestamps))
	for _, iv := range intervals {
		for i, ts := range timestamps {
			delta := iv.RelativeTo.Sub(ts)
			if delta >= iv.Min && delta <= iv.Max {
				periods[i] = iv.Name
			}
		}
	}
	return periods, nil
}
