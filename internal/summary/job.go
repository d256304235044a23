package summary

import (
	"context"
	"time"
)

// Job runs one summary for the window that follows the previous marker.
type Job struct {
	computer *Computer
	cfg      WindowConfig
}

func NewJob(store Store, cfg WindowConfig) *Job {
	return &Job{computer: NewComputer(store), cfg: cfg}
}

// Run computes the report for [marker, now) and returns it with the marker to
// persist once the report has been delivered. On failure the given marker is
// returned unchanged.
func (j *Job) Run(ctx context.Context, marker Marker, now time.Time) (*Report, Marker, error) {
	w, err := SelectWindow(marker, now, j.cfg)
	if err != nil {
		return nil, marker, err
	}

	report, err := j.computer.Compute(ctx, w)
	if err != nil {
		return nil, marker, err
	}

	return report, Marker{At: w.End}, nil
}

// Preview computes the report for [since, now) without reference to any marker.
func (j *Job) Preview(ctx context.Context, since, now time.Time) (*Report, error) {
	w, err := SelectWindow(Marker{At: since}, now, j.cfg)
	if err != nil {
		return nil, err
	}
	return j.computer.Compute(ctx, w)
}
