// Package timegrid maps pointer gestures on a seven-day hour grid to time
// ranges, and stored calendar events back to grid geometry.
package timegrid

import "math"

const (
	Days            = 7
	SnapMinutes     = 15
	ClickThreshold  = 10.0 // px of movement below which a drag is a click
	DefaultDuration = 60   // minutes
	MinBlockMinutes = 15
	MinEventHeight  = 30.0 // px
)

// Grid describes the visible hour range and its vertical density. Both hours
// are inclusive: the default grid shows 00:00 through the 23:00 row.
type Grid struct {
	StartHour     int     `json:"start_hour"`
	EndHour       int     `json:"end_hour"`
	PixelsPerHour float64 `json:"pixels_per_hour"`
}

func Default() Grid { return Grid{StartHour: 0, EndHour: 23, PixelsPerHour: 60} }

func (g Grid) normalized() Grid {
	if g.PixelsPerHour <= 0 || math.IsNaN(g.PixelsPerHour) || math.IsInf(g.PixelsPerHour, 0) {
		g.PixelsPerHour = 60
	}
	g.StartHour = clampInt(g.StartHour, 0, 23)
	g.EndHour = clampInt(g.EndHour, g.StartHour, 23)
	return g
}

// Height is the pixel height of one day column.
func (g Grid) Height() float64 {
	g = g.normalized()
	return float64(g.EndHour-g.StartHour+1) * g.PixelsPerHour
}

// PixelToClock converts a y offset from the top of a column to a time of day,
// snapped to the nearest quarter hour and clamped to [StartHour, EndHour].
func (g Grid) PixelToClock(y float64) Clock {
	g = g.normalized()
	if math.IsNaN(y) {
		y = 0
	}
	minutes := y/g.PixelsPerHour*60 + float64(g.StartHour*60)
	snapped := math.Round(minutes/SnapMinutes) * SnapMinutes
	lo, hi := float64(g.StartHour*60), float64(g.EndHour*60)
	switch {
	case snapped < lo:
		snapped = lo
	case snapped > hi:
		snapped = hi
	}
	return Clock(snapped)
}

// ClockToPixel is the inverse of PixelToClock without snapping.
func (g Grid) ClockToPixel(c Clock) float64 {
	g = g.normalized()
	return float64(int(c)-g.StartHour*60) / 60 * g.PixelsPerHour
}

// maxEnd is the latest end for a widened block: one hour past EndHour, but
// never past 23:59.
func (g Grid) maxEnd() Clock {
	g = g.normalized()
	end := Clock((g.EndHour + 1) * 60)
	if end > LastMinute {
		end = LastMinute
	}
	return end
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
