// Package locationhistory reads Google Location History exports
// (Records.json) into time-ordered samples ready for stay-point detection.
package locationhistory

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

// Activity defaults applied to records that carry no activity annotation
const (
	ActivityUnknown           = "UNKNOWN"
	DefaultActivityConfidence = 100
)

// e7Scale converts latitudeE7/longitudeE7 integers to degrees
const e7Scale = 1e-7

// Sample is one location fix with its resolved activity
type Sample struct {
	Timestamp          time.Time `json:"timestamp"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Accuracy           *float64  `json:"accuracy,omitempty"`
	ActivityType       string    `json:"activity_type"`
	ActivityConfidence int       `json:"activity_confidence"`
	ActivityTimestamp  time.Time `json:"activity_timestamp"`
}

// Position returns the sample's coordinates
func (s Sample) Position() spatial.Position {
	return spatial.Position{Lat: s.Lat, Lon: s.Lon}
}

// Options controls preprocessing
type Options struct {
	// KeepAllActivities emits one sample per activity candidate instead of
	// resolving each record to its most likely activity.
	KeepAllActivities bool
}

type document struct {
	Locations *[]record `json:"locations"`
}

type record struct {
	TimestampMs string          `json:"timestampMs"`
	Timestamp   string          `json:"timestamp"`
	LatitudeE7  *int64          `json:"latitudeE7"`
	LongitudeE7 *int64          `json:"longitudeE7"`
	Accuracy    *float64        `json:"accuracy"`
	Activity    []activityGroup `json:"activity"`
}

type activityGroup struct {
	TimestampMs string     `json:"timestampMs"`
	Timestamp   string     `json:"timestamp"`
	Activity    []activity `json:"activity"`
}

type activity struct {
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
}

// candidate is one flattened (record, activity) row
type candidate struct {
	activityType string
	confidence   int
	timestamp    time.Time
}

// ParseFile reads a Records.json file
func ParseFile(path string, opts Options) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location history: %w", err)
	}
	defer f.Close()

	return Parse(f, opts)
}

// Parse decodes a Records.json document and returns its samples sorted
// oldest first. Records without an activity get UNKNOWN/100 stamped at the
// record time; a zero or missing accuracy is left nil.
func Parse(r io.Reader, opts Options) ([]Sample, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode location history: %w", err)
	}
	if doc.Locations == nil {
		return nil, fmt.Errorf("location history has no \"locations\" array")
	}

	records := *doc.Locations
	samples := make([]Sample, 0, len(records))
	for idx, rec := range records {
		ts, err := parseTimestamp(rec.TimestampMs, rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		if rec.LatitudeE7 == nil || rec.LongitudeE7 == nil {
			return nil, fmt.Errorf("record %d: missing latitudeE7/longitudeE7", idx)
		}

		candidates, err := flattenActivities(rec, ts)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		if !opts.KeepAllActivities {
			candidates = []candidate{resolveActivity(ts, candidates)}
		}

		base := Sample{
			Timestamp: ts,
			Lat:       float64(*rec.LatitudeE7) * e7Scale,
			Lon:       float64(*rec.LongitudeE7) * e7Scale,
		}
		if rec.Accuracy != nil && *rec.Accuracy != 0 && !math.IsNaN(*rec.Accuracy) {
			acc := *rec.Accuracy
			base.Accuracy = &acc
		}

		for _, c := range candidates {
			s := base
			s.ActivityType = c.activityType
			s.ActivityConfidence = c.confidence
			s.ActivityTimestamp = c.timestamp
			samples = append(samples, s)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	return samples, nil
}

func flattenActivities(rec record, ts time.Time) ([]candidate, error) {
	var out []candidate
	for gi, group := range rec.Activity {
		groupTS, err := parseTimestamp(group.TimestampMs, group.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", gi, err)
		}
		for _, a := range group.Activity {
			out = append(out, candidate{
				activityType: a.Type,
				confidence:   a.Confidence,
				timestamp:    groupTS,
			})
		}
	}

	if len(out) == 0 {
		out = append(out, candidate{
			activityType: ActivityUnknown,
			confidence:   DefaultActivityConfidence,
			timestamp:    ts,
		})
	}
	return out, nil
}

// resolveActivity picks the candidate with the highest confidence. Ties go
// to the annotation closest in time to the sample, then to the first seen.
func resolveActivity(sampleTS time.Time, candidates []candidate) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.confidence > best.confidence {
			best = c
			continue
		}
		if c.confidence == best.confidence && absDuration(sampleTS.Sub(c.timestamp)) < absDuration(sampleTS.Sub(best.timestamp)) {
			best = c
		}
	}
	return best
}

func parseTimestamp(millis, iso string) (time.Time, error) {
	if millis != "" {
		ms, err := strconv.ParseInt(millis, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestampMs %q: %w", millis, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	if iso != "" {
		ts, err := time.Parse(time.RFC3339Nano, iso)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", iso, err)
		}
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("missing timestamp")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Positions extracts the scanner's position sequence
func Positions(samples []Sample) []spatial.Position {
	out := make([]spatial.Position, len(samples))
	for i, s := range samples {
		out[i] = s.Position()
	}
	return out
}

// Timestamps extracts the scanner's timestamp sequence
func Timestamps(samples []Sample) []time.Time {
	out := make([]time.Time, len(samples))
	for i, s := range samples {
		out[i] = s.Timestamp
	}
	return out
}
