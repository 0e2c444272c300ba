package timegrid

import (
	"math"
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// Event is a stored calendar entry as supplied by the caller.
type Event struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`
	Color     string `json:"color,omitempty"`
}

// Block is a timed event positioned in a day column.
type Block struct {
	EventID string  `json:"event_id"`
	Title   string  `json:"title"`
	Color   string  `json:"color,omitempty"`
	Day     int     `json:"day"`
	Start   Clock   `json:"start_time"`
	End     Clock   `json:"end_time"`
	Top     float64 `json:"top"`
	Height  float64 `json:"height"`
}

// AllDayItem sits in the fixed-height row above a day column.
type AllDayItem struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Color   string `json:"color,omitempty"`
	Day     int    `json:"day"`
}

type Layout struct {
	Blocks []Block                 `json:"blocks"`
	AllDay map[string][]AllDayItem `json:"all_day"` // keyed by date
}

// Layout positions events that fall inside week w. Events with no usable
// start time go to the all-day row of their date. Events whose date is
// unparsable or outside the week are left out, as are timed events that end
// before StartHour or begin after EndHour. Blocks that straddle the edge of
// the grid are cut to the visible hours and always fit inside the column;
// Start and End keep the event's own times.
func (g Grid) Layout(w Week, events []Event) Layout {
	g = g.normalized()
	out := Layout{Blocks: []Block{}, AllDay: map[string][]AllDayItem{}}
	top, bottom := Clock(g.StartHour*60), Clock((g.EndHour+1)*60)
	column := g.Height()
	first := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, time.UTC)

	for _, e := range events {
		d, err := time.Parse(DateLayout, e.Date)
		if err != nil {
			continue
		}
		day := int(math.Round(d.Sub(first).Hours() / 24))
		if day < 0 || day >= Days {
			continue
		}
		start, err := ParseClock(e.StartTime)
		if e.AllDay || e.StartTime == "" || err != nil {
			out.AllDay[e.Date] = append(out.AllDay[e.Date], AllDayItem{
				EventID: e.ID, Title: e.Title, Color: e.Color, Day: day,
			})
			continue
		}
		end := start + DefaultDuration
		if e.EndTime != "" {
			if v, err := ParseClock(e.EndTime); err == nil && v > start {
				end = v
			}
		}
		if end > LastMinute {
			end = LastMinute
		}
		if end <= top || start >= bottom {
			continue
		}
		from, to := start, end
		if from < top {
			from = top
		}
		if to > bottom {
			to = bottom
		}
		height := math.Min(math.Max(float64(to-from)/60*g.PixelsPerHour, MinEventHeight), column)
		out.Blocks = append(out.Blocks, Block{
			EventID: e.ID,
			Title:   e.Title,
			Color:   e.Color,
			Day:     day,
			Start:   start,
			End:     end,
			Top:     math.Min(g.ClockToPixel(from), column-height),
			Height:  height,
		})
	}
	sort.SliceStable(out.Blocks, func(i, j int) bool {
		if out.Blocks[i].Day != out.Blocks[j].Day {
			return out.Blocks[i].Day < out.Blocks[j].Day
		}
		return out.Blocks[i].Start < out.Blocks[j].Start
	})
	return out
}
