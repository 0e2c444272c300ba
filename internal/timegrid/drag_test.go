package timegrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drag(g Grid, day int, from, to float64) (Span, bool) {
	d := NewDrag(g)
	d.Begin(day, from)
	d.Move(to)
	return d.End(true)
}

func TestDragScenario(t *testing.T) {
	s, ok := drag(Grid{StartHour: 0, EndHour: 23, PixelsPerHour: 80}, 2, 40, 100)
	require.True(t, ok)
	assert.Equal(t, 2, s.Day)
	assert.Equal(t, "00:30", s.Start.String())
	assert.Equal(t, "01:15", s.End.String())
}

func TestDragUpwardsIsNormalized(t *testing.T) {
	s, ok := drag(Grid{PixelsPerHour: 80, EndHour: 23}, 0, 100, 40)
	require.True(t, ok)
	assert.Equal(t, At(0, 30), s.Start)
	assert.Equal(t, At(1, 15), s.End)
}

func TestClickMakesOneHourBlock(t *testing.T) {
	g := Default()
	for _, move := range []float64{0, 3, -9.9} {
		s, ok := drag(g, 1, 130, 130+move)
		require.True(t, ok)
		assert.Equal(t, At(2, 15), s.Start, "move %v", move)
		assert.Equal(t, s.Start+DefaultDuration, s.End, "move %v", move)
	}
}

func TestShortDragMakesQuarterHourBlock(t *testing.T) {
	// 113px and 126px both snap to 02:00 at 60px/h
	s, ok := drag(Default(), 0, 113, 126)
	require.True(t, ok)
	assert.Equal(t, At(2, 0), s.Start)
	assert.Equal(t, At(2, 15), s.End)

	s, ok = drag(Default(), 0, 125, 112)
	require.True(t, ok)
	assert.Equal(t, MinBlockMinutes, int(s.End-s.Start))
}

func TestClickAtBottomIsCappedAtEndOfDay(t *testing.T) {
	g := Default()
	s, ok := drag(g, 6, g.Height(), g.Height())
	require.True(t, ok)
	assert.Equal(t, At(23, 0), s.Start)
	assert.Equal(t, LastMinute, s.End)

	short := Grid{StartHour: 8, EndHour: 17, PixelsPerHour: 60}
	s, ok = drag(short, 0, short.Height(), short.Height())
	require.True(t, ok)
	assert.Equal(t, At(17, 0), s.Start)
	assert.Equal(t, At(18, 0), s.End)
}

func TestDragOutOfBoundsIsClamped(t *testing.T) {
	g := Default()
	s, ok := drag(g, 9, -200, 99999)
	require.True(t, ok)
	assert.Equal(t, Days-1, s.Day)
	assert.Equal(t, At(0, 0), s.Start)
	assert.Equal(t, At(23, 0), s.End)
}

func TestReleaseOutsideColumnCancels(t *testing.T) {
	d := NewDrag(Default())
	d.Begin(3, 60)
	d.Move(240)
	_, ok := d.End(false)
	assert.False(t, ok)
	assert.False(t, d.Active())

	_, ok = d.End(true)
	assert.False(t, ok, "a finished drag cannot be released twice")
}

func TestGhostFollowsPointerOnAnchorDay(t *testing.T) {
	d := NewDrag(Default())
	_, _, _, ok := d.Ghost()
	assert.False(t, ok)
	d.Move(100)
	assert.False(t, d.Active(), "move without begin is ignored")

	d.Begin(4, 200)
	d.Move(80)
	day, top, bottom, ok := d.Ghost()
	require.True(t, ok)
	assert.Equal(t, 4, day)
	assert.Equal(t, 80.0, top)
	assert.Equal(t, 200.0, bottom)

	d.Cancel()
	assert.False(t, d.Active())
}

func TestWeekSelection(t *testing.T) {
	w := WeekOf(time.Date(2026, 10, 21, 15, 4, 0, 0, time.UTC), time.Monday)
	assert.Equal(t, "2026-10-19", w.Date(0))
	assert.Equal(t, "2026-10-25", w.Date(6))

	s, ok := drag(Default(), 2, 540, 600)
	require.True(t, ok)
	assert.Equal(t, Selection{Date: "2026-10-21", StartTime: "09:00", EndTime: "10:00"}, w.Selection(s))

	sun := WeekOf(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), time.Sunday)
	assert.Equal(t, "2026-10-18", sun.Date(0))
}
