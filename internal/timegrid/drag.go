package timegrid

import (
	"math"
	"time"
)

// Span is a finished selection on one day column.
type Span struct {
	Day   int   `json:"day"`
	Start Clock `json:"start_time"`
	End   Clock `json:"end_time"`
}

// Drag tracks one drag-to-create gesture. It holds transient state only; a
// zero Drag is idle. Not safe for concurrent use.
type Drag struct {
	grid     Grid
	active   bool
	day      int
	anchorY  float64
	currentY float64
}

func NewDrag(g Grid) *Drag { return &Drag{grid: g.normalized()} }

// Begin anchors a drag at y on the given day column.
func (d *Drag) Begin(day int, y float64) {
	y = clampFloat(y, 0, d.grid.Height())
	d.active = true
	d.day = clampInt(day, 0, Days-1)
	d.anchorY = y
	d.currentY = y
}

// Move updates the pointer position. The drag stays on its anchor day no
// matter which column the pointer is over.
func (d *Drag) Move(y float64) {
	if !d.active {
		return
	}
	d.currentY = clampFloat(y, 0, d.grid.Height())
}

func (d *Drag) Active() bool { return d.active }

// Ghost returns the pixel extent of the in-progress selection.
func (d *Drag) Ghost() (day int, top, bottom float64, ok bool) {
	if !d.active {
		return 0, 0, 0, false
	}
	return d.day, math.Min(d.anchorY, d.currentY), math.Max(d.anchorY, d.currentY), true
}

func (d *Drag) Cancel() { *d = Drag{grid: d.grid} }

// End finishes the drag. Releasing outside any day column cancels it.
// A release within ClickThreshold px of the anchor yields a DefaultDuration
// block from the anchor; any other selection shorter than MinBlockMinutes is
// widened to MinBlockMinutes.
func (d *Drag) End(inColumn bool) (Span, bool) {
	defer d.Cancel()
	if !d.active || !inColumn {
		return Span{}, false
	}
	g := d.grid
	s := Span{Day: d.day}
	if math.Abs(d.currentY-d.anchorY) < ClickThreshold {
		s.Start = g.PixelToClock(d.anchorY)
		s.End = s.Start + DefaultDuration
	} else {
		s.Start = g.PixelToClock(math.Min(d.anchorY, d.currentY))
		s.End = g.PixelToClock(math.Max(d.anchorY, d.currentY))
		if s.End-s.Start < MinBlockMinutes {
			s.End = s.Start + MinBlockMinutes
		}
	}
	if limit := g.maxEnd(); s.End > limit {
		s.End = limit
	}
	return s, true
}

// Week anchors day columns to calendar dates.
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing t that begins on first.
func WeekOf(t time.Time, first time.Weekday) Week {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	back := (int(d.Weekday()) - int(first) + Days) % Days
	return Week{Start: d.AddDate(0, 0, -back)}
}

// Date returns the YYYY-MM-DD date of a day column.
func (w Week) Date(day int) string {
	return w.Start.AddDate(0, 0, day).Format(DateLayout)
}

// Selection is what a finished drag asks the caller to create.
type Selection struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (w Week) Selection(s Span) Selection {
	return Selection{Date: w.Date(s.Day), StartTime: s.Start.String(), EndTime: s.End.String()}
}
