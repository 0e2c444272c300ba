package timegrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := map[string]Clock{
		"00:00":    0,
		"09:30":    At(9, 30),
		"23:59":    LastMinute,
		"07:15:45": At(7, 15),
		" 12:00 ":  At(12, 0),
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "24:00", "9am", "12:61"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "09:05", At(9, 5).String())
}

func TestPixelToClock(t *testing.T) {
	g := Default()
	assert.Equal(t, At(0, 0), g.PixelToClock(0))
	assert.Equal(t, At(1, 0), g.PixelToClock(g.PixelsPerHour))

	late := Grid{StartHour: 8, EndHour: 18, PixelsPerHour: 100}
	assert.Equal(t, At(8, 0), late.PixelToClock(0))
	assert.Equal(t, At(9, 0), late.PixelToClock(100))
	assert.Equal(t, At(8, 15), late.PixelToClock(20), "20px is 12 minutes, nearest quarter is 15")
	assert.Equal(t, At(8, 0), late.PixelToClock(12), "7.2 minutes rounds down")
}

func TestPixelToClockClamps(t *testing.T) {
	g := Grid{StartHour: 8, EndHour: 18, PixelsPerHour: 60}
	assert.Equal(t, At(8, 0), g.PixelToClock(-500))
	assert.Equal(t, At(18, 0), g.PixelToClock(5000))
	assert.Equal(t, At(8, 0), g.PixelToClock(math.NaN()))
	assert.Equal(t, At(18, 0), g.PixelToClock(math.Inf(1)))
	assert.Equal(t, At(23, 0), Default().PixelToClock(Default().Height()))
}

func TestPixelRoundTripWithinOneSnap(t *testing.T) {
	for _, g := range []Grid{Default(), {StartHour: 6, EndHour: 20, PixelsPerHour: 80}, {EndHour: 23, PixelsPerHour: 48}} {
		snapPx := float64(SnapMinutes) / 60 * g.PixelsPerHour
		for y := 0.0; y <= float64(g.EndHour-g.StartHour)*g.PixelsPerHour; y += 3.7 {
			back := g.ClockToPixel(g.PixelToClock(y))
			assert.LessOrEqual(t, math.Abs(back-y), snapPx, "grid %+v y=%v", g, y)
		}
	}
}

func TestGridNormalizes(t *testing.T) {
	g := Grid{StartHour: -3, EndHour: 40}
	assert.Equal(t, 24*60.0, g.Height())
	assert.Equal(t, At(0, 0), g.PixelToClock(0))
	assert.Equal(t, At(1, 0), g.PixelToClock(60))
}
