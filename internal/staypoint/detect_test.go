package staypoint

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/staypoint-backend-go/internal/spatial"
)

var base = time.Date(2017, 11, 22, 14, 0, 0, 0, time.UTC)

func at(minutes ...int) []time.Time {
	out := make([]time.Time, len(minutes))
	for k, m := range minutes {
		out[k] = base.Add(time.Duration(m) * time.Minute)
	}
	return out
}

func pos(pairs ...[2]float64) []spatial.Position {
	out := make([]spatial.Position, len(pairs))
	for k, p := range pairs {
		out[k] = spatial.PositionFromPair(p)
	}
	return out
}

func TestDetect_StayThenJump(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0}, [2]float64{10, 10})

	labels, err := Detect(positions, at(0, 20, 40, 41), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, -1}, labels)
}

func TestDetect_TooShortInTime(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0}, [2]float64{10, 10})

	labels, err := Detect(positions, at(0, 1, 2, 3), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -1, -1, -1}, labels)
}

func TestDetect_SinglePoint(t *testing.T) {
	labels, err := Detect(pos([2]float64{1, 1}), at(0), 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{Transit}, labels)
}

func TestDetect_Empty(t *testing.T) {
	labels, err := Detect(nil, nil, 1, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDetect_LengthMismatch(t *testing.T) {
	labels, err := Detect(pos([2]float64{0, 0}, [2]float64{0, 0}), at(0), 1, time.Minute)
	require.Error(t, err)
	assert.Nil(t, labels)
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	var mismatch *LengthMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Positions)
	assert.Equal(t, 1, mismatch.Timestamps)
	assert.Contains(t, err.Error(), "2 positions but 1 timestamps")
}

func TestDetect_DistanceThresholdIsInclusive(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0.001}, [2]float64{0, 1})
	edge := spatial.Haversine(positions[0], positions[1])

	// Sample 1 sits exactly on the radius and stays inside the region
	labels, err := Detect(positions, at(0, 10, 30), edge, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, -1}, labels)

	// Shrinking the radius below it turns sample 1 into the boundary
	labels, err = Detect(positions, at(0, 10, 30), edge*0.999, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, -1}, labels)
}

func TestDetect_DurationThresholdIsExclusive(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{5, 5})

	labels, err := Detect(positions, at(0, 5, 15), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -1, -1}, labels)

	labels, err = Detect(positions, at(0, 5, 16), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, -1}, labels)
}

func TestDetect_AllStationaryPrefix(t *testing.T) {
	const k = 6
	var positions []spatial.Position
	var minutes []int
	for i := 0; i < k; i++ {
		positions = append(positions, spatial.Position{Lat: 48.8566, Lon: 2.3522 + float64(i)*1e-5})
		minutes = append(minutes, i*5)
	}
	positions = append(positions, spatial.Position{Lat: 48.9, Lon: 2.4})
	minutes = append(minutes, k*5)

	labels, err := Detect(positions, at(minutes...), 0.05, 20*time.Minute)
	require.NoError(t, err)
	for i := 0; i < k; i++ {
		assert.Equal(t, 0, labels[i], "index %d", i)
	}
	assert.Equal(t, Transit, labels[k])
}

func TestDetect_BoundarySampleStartsNextCandidate(t *testing.T) {
	// Two stays back to back: the first out-of-range sample opens the second stay
	positions := pos(
		[2]float64{0, 0}, [2]float64{0, 0},
		[2]float64{1, 1}, [2]float64{1, 1},
		[2]float64{2, 2},
	)

	labels, err := Detect(positions, at(0, 30, 31, 60, 61), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1, -1}, labels)
}

func TestDetect_ShortRunRetriesFromNextSample(t *testing.T) {
	// 0 is a brief pass-through; from 1 onwards the entity stays put
	positions := pos(
		[2]float64{0, 0},
		[2]float64{0.5, 0.5}, [2]float64{0.5, 0.5}, [2]float64{0.5, 0.5},
		[2]float64{3, 3},
	)

	labels, err := Detect(positions, at(0, 1, 20, 40, 41), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 0, 0, -1}, labels)
}

func TestDetect_TailWithoutBoundaryIsUnlabelled(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0})

	labels, err := Detect(positions, at(0, 60, 120), 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, -1, -1}, labels)
}

func TestDetect_DegenerateThresholds(t *testing.T) {
	positions := pos([2]float64{0, 0}, [2]float64{0, 0.01}, [2]float64{0, 0.02}, [2]float64{0, 0.03})

	// Zero radius and zero duration: every step is a boundary and every run qualifies
	labels, err := Detect(positions, at(0, 1, 2, 3), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, -1}, labels)
}

func randomWalk(r *rand.Rand, n int) ([]spatial.Position, []time.Time) {
	positions := make([]spatial.Position, n)
	timestamps := make([]time.Time, n)
	lat, lon := 40.0, -3.0
	ts := base
	for k := 0; k < n; k++ {
		if r.Intn(4) == 0 {
			lat += (r.Float64() - 0.5) * 0.02
			lon += (r.Float64() - 0.5) * 0.02
		} else {
			lat += (r.Float64() - 0.5) * 0.0002
			lon += (r.Float64() - 0.5) * 0.0002
		}
		ts = ts.Add(time.Duration(1+r.Intn(10)) * time.Minute)
		positions[k] = spatial.Position{Lat: lat, Lon: lon}
		timestamps[k] = ts
	}
	return positions, timestamps
}

func TestDetect_LabelInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		positions, timestamps := randomWalk(r, 200)
		labels, err := Detect(positions, timestamps, 0.1, 10*time.Minute)
		require.NoError(t, err)
		require.Len(t, labels, len(positions))

		again, err := Detect(positions, timestamps, 0.1, 10*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, labels, again, "detection must be deterministic")

		next := 0
		seen := map[int]bool{}
		prev := Transit
		for k, l := range labels {
			if l == Transit {
				prev = l
				continue
			}
			require.GreaterOrEqual(t, l, 0, "index %d", k)
			if l != prev {
				require.False(t, seen[l], "label %d is not contiguous", l)
				require.Equal(t, next, l, "labels must be assigned in discovery order")
				seen[l] = true
				next++
			}
			prev = l
		}
	}
}

func TestDetectContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	positions := pos([2]float64{0, 0}, [2]float64{0, 0}, [2]float64{10, 10})
	labels, err := DetectContext(ctx, positions, at(0, 30, 31), 1, 15*time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{-1, -1, -1}, labels)
}

func TestIsSorted(t *testing.T) {
	sorted := at(-1, 0, 1, 3, 4)
	unsorted := at(0, 3, 1, 4, -1)
	reversed := at(4, 3, 1, 0, -1)

	assert.True(t, IsSorted(sorted, true))
	assert.False(t, IsSorted(unsorted, true))
	assert.True(t, IsSorted(reversed, false))
	assert.False(t, IsSorted(reversed, true))
	assert.True(t, IsSorted(at(1, 1, 1), true))
	assert.True(t, IsSorted(nil, true))
}
