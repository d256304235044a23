package summary

import "time"

// Window is the half-open reporting interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Span is the window as a read range.
func (w Window) Span() Range {
	return Range{From: w.Start, To: w.End}
}

// Marker is the persisted time of the last summary. The zero Marker means no
// summary has been produced yet.
type Marker struct {
	At time.Time `json:"at"`
}

func (m Marker) IsZero() bool {
	return m.At.IsZero()
}

// WindowConfig supplies the start of the first window when there is no marker.
// Epoch wins over Lookback.
type WindowConfig struct {
	Epoch    *time.Time
	Lookback time.Duration
}

// SelectWindow returns [marker, now). Without a marker the window starts at the
// configured epoch, or Lookback before now.
func SelectWindow(marker Marker, now time.Time, cfg WindowConfig) (Window, error) {
	const op = "select window"

	end := now.UTC().Truncate(time.Microsecond)

	var start time.Time
	switch {
	case !marker.IsZero():
		start = marker.At
	case cfg.Epoch != nil:
		start = *cfg.Epoch
	case cfg.Lookback > 0:
		start = end.Add(-cfg.Lookback)
	default:
		return Window{}, configError(op, "no previous summary and no epoch or lookback configured")
	}
	start = start.UTC().Truncate(time.Microsecond)

	if !start.Before(end) {
		return Window{}, configError(op, "window start %s is not before end %s", start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano))
	}

	return Window{Start: start, End: end}, nil
}

// Range selects rows by timestamp. From is inclusive and a zero From is
// unbounded. To is exclusive unless Inclusive is set.
type Range struct {
	From      time.Time
	To        time.Time
	Inclusive bool
}

// AsOf selects everything recorded at or before t.
func AsOf(t time.Time) Range {
	return Range{To: t, Inclusive: true}
}

func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if r.Inclusive {
		return !t.After(r.To)
	}
	return t.Before(r.To)
}
