// Command staypoints labels a Location History export offline and writes
// one CSV row per sample, or one row per stay with -stays.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/locationhistory"
	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "staypoints:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defaults := staypoint.DefaultOptions()

	fs := flag.NewFlagSet("staypoints", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "-", "Records.json path, - for stdin")
	distanceKm := fs.Float64("distance-km", defaults.DistanceKm, "stay radius in kilometres")
	minDuration := fs.Duration("min-duration", defaults.MinDuration, "time that must be strictly exceeded to form a stay")
	keepAll := fs.Bool("keep-all-activities", false, "emit one row per activity candidate")
	stays := fs.Bool("stays", false, "write one row per stay instead of per sample")
	verbose := fs.Bool("v", false, "log progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *distanceKm < 0 || *minDuration < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).Level(level).With().Timestamp().Logger()

	var samples []locationhistory.Sample
	var err error
	opts := locationhistory.Options{KeepAllActivities: *keepAll}
	if *in == "-" {
		samples, err = locationhistory.Parse(stdin, opts)
	} else {
		samples, err = locationhistory.ParseFile(*in, opts)
	}
	if err != nil {
		return err
	}
	logger.Info().Int("samples", len(samples)).Msg("parsed location history")

	positions := locationhistory.Positions(samples)
	timestamps := locationhistory.Timestamps(samples)

	started := time.Now()
	labels, err := staypoint.DetectContext(ctx, positions, timestamps, *distanceKm, *minDuration)
	if err != nil {
		return err
	}
	summary := staypoint.Summarize(positions, timestamps, labels)
	logger.Info().Int("stays", len(summary)).Dur("elapsed", time.Since(started)).Msg("detection finished")

	w := csv.NewWriter(stdout)
	if *stays {
		err = writeStays(w, summary)
	} else {
		err = writeSamples(w, samples, labels)
	}
	if err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeSamples(w *csv.Writer, samples []locationhistory.Sample, labels []int) error {
	if err := w.Write([]string{"timestamp", "lat", "lon", "accuracy", "activity_type", "activity_confidence", "label"}); err != nil {
		return err
	}
	for i, s := range samples {
		accuracy := ""
		if s.Accuracy != nil {
			accuracy = formatFloat(*s.Accuracy)
		}
		row := []string{
			s.Timestamp.Format(time.RFC3339),
			formatFloat(s.Lat),
			formatFloat(s.Lon),
			accuracy,
			s.ActivityType,
			strconv.Itoa(s.ActivityConfidence),
			strconv.Itoa(labels[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeStays(w *csv.Writer, stays []staypoint.Stay) error {
	if err := w.Write([]string{"label", "start", "end", "duration_s", "points", "center_lat", "center_lon", "radius_m"}); err != nil {
		return err
	}
	for _, s := range stays {
		row := []string{
			strconv.Itoa(s.Label),
			s.Start.Format(time.RFC3339),
			s.End.Format(time.RFC3339),
			strconv.FormatInt(int64(s.Duration/time.Second), 10),
			strconv.Itoa(s.PointCount),
			formatFloat(s.Center.Lat),
			formatFloat(s.Center.Lon),
			strconv.FormatFloat(s.RadiusMeters, 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
