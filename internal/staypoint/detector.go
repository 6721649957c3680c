package staypoint

import (
	"context"
	"time"

	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

// Options holds the two detection thresholds
type Options struct {
	DistanceKm  float64       `json:"distance_km"`  // region radius around the candidate center
	MinDuration time.Duration `json:"min_duration"` // time spent must strictly exceed this
}

// DefaultOptions returns 50 m / 15 min
func DefaultOptions() Options {
	return Options{
		DistanceKm:  0.05,
		MinDuration: 15 * time.Minute,
	}
}

// Detector keeps a threshold configuration and the labels of its last run.
// It is not safe for concurrent Fit calls; use Detect directly for that.
type Detector struct {
	opts     Options
	progress ProgressFunc
	labels   []int
}

// NewDetector creates a detector with fixed thresholds
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// WithProgress registers a callback invoked after every candidate center
func (d *Detector) WithProgress(fn ProgressFunc) *Detector {
	d.progress = fn
	return d
}

// Options returns the detector's thresholds
func (d *Detector) Options() Options {
	return d.opts
}

// Fit runs detection and stores the labels
func (d *Detector) Fit(positions []spatial.Position, timestamps []time.Time) error {
	return d.FitContext(context.Background(), positions, timestamps)
}

// FitContext is Fit with cancellation. A cancelled run keeps the partial labels.
func (d *Detector) FitContext(ctx context.Context, positions []spatial.Position, timestamps []time.Time) error {
	labels, err := detect(ctx, positions, timestamps, d.opts.DistanceKm, d.opts.MinDuration, d.progress)
	if labels != nil {
		d.labels = labels
	}
	return err
}

// FitPredict runs detection and returns the labels
func (d *Detector) FitPredict(positions []spatial.Position, timestamps []time.Time) ([]int, error) {
	if err := d.Fit(positions, timestamps); err != nil {
		return nil, err
	}
	return d.labels, nil
}

// Labels returns the labels of the most recent run, nil before the first one
func (d *Detector) Labels() []int {
	return d.labels
}
