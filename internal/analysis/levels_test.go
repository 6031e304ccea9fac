package analysis

import (
	"testing"

	"forex-signal-go/internal/twelvedata"

	"github.com/stretchr/testify/assert"
)

// choppyBars alternates closes around price so the close distribution has a
// realistic spread without forming any fractal of its own.
func choppyBars(n int, price float64) []twelvedata.OHLC {
	bars := make([]twelvedata.OHLC, n)
	for i := range bars {
		c := price + 0.0010
		if i%2 == 1 {
			c = price - 0.0010
		}
		bars[i] = twelvedata.OHLC{
			Open:  c,
			High:  c + 0.0005,
			Low:   c - 0.0005,
			Close: c,
		}
	}
	return bars
}

func TestFindDynamicLevels_DetectsFractals(t *testing.T) {
	// Arrange: a swing high and a swing low inside the lookback window,
	// on either side of the final close.
	bars := choppyBars(60, 1.1000)
	bars[50].High = 1.1040
	bars[45].Low = 1.0960

	// Act
	levels := FindDynamicLevels(bars, 24)

	// Assert
	resistance, ok := levels.NearestResistance()
	assert.True(t, ok)
	assert.Equal(t, 1.1040, resistance)

	support, ok := levels.NearestSupport()
	assert.True(t, ok)
	assert.Equal(t, 1.0960, support)
}

func TestFindDynamicLevels_NearestLevelComesFirst(t *testing.T) {
	// Arrange: two swing highs, the lower one is nearer to price.
	bars := choppyBars(60, 1.1000)
	bars[50].High = 1.1030
	bars[44].High = 1.1045

	// Act
	levels := FindDynamicLevels(bars, 24)

	// Assert
	resistance, ok := levels.NearestResistance()
	assert.True(t, ok)
	assert.Equal(t, 1.1030, resistance)
	assert.Contains(t, levels.Resistances, 1.1045)
}

func TestFindDynamicLevels_FiltersOutliers(t *testing.T) {
	// Arrange: one bar with an absurd spike that would otherwise become
	// the resistance level.
	bars := choppyBars(120, 1.1000)
	bars[100].High = 9.0

	// Act
	levels := FindDynamicLevels(bars, 24)

	// Assert
	for _, r := range levels.Resistances {
		assert.Less(t, r, 2.0)
	}
}

func TestFindDynamicLevels_FallsBackToWindowExtremes(t *testing.T) {
	// Arrange: a strictly rising sequence has no down fractals below price
	// and no up fractals above it.
	bars := make([]twelvedata.OHLC, 60)
	for i := range bars {
		p := 1.1000 + float64(i)*0.0010
		bars[i] = twelvedata.OHLC{Open: p, High: p + 0.0005, Low: p - 0.0005, Close: p}
	}

	// Act
	levels := FindDynamicLevels(bars, 24)

	// Assert: window extremes stand in for missing fractals.
	_, ok := levels.NearestSupport()
	assert.True(t, ok)
	_, ok = levels.NearestResistance()
	assert.True(t, ok)
}

func TestFindDynamicLevels_ShortHistoryStillYieldsExtremes(t *testing.T) {
	// Arrange: fewer bars than the lookback window and no fractal anywhere.
	bars := choppyBars(8, 1.1000)

	// Act
	levels := FindDynamicLevels(bars, 24)

	// Assert: the fallback window caps at the available history instead of
	// leaving the levels empty.
	support, ok := levels.NearestSupport()
	assert.True(t, ok)
	assert.InDelta(t, 1.0985, support, 1e-9)

	resistance, ok := levels.NearestResistance()
	assert.True(t, ok)
	assert.InDelta(t, 1.1015, resistance, 1e-9)
}

func TestFindDynamicLevels_TooFewBars(t *testing.T) {
	levels := FindDynamicLevels(choppyBars(3, 1.1), 24)
	assert.Empty(t, levels.Supports)
	assert.Empty(t, levels.Resistances)
}

func TestFindKeyLevels_WindowExtremes(t *testing.T) {
	bars := choppyBars(120, 1.1000)
	bars[110].High = 1.1300
	bars[115].Low = 1.0800
	// Extremes outside the window must not count.
	bars[5].High = 2.0
	bars[6].Low = 0.5

	levels := FindKeyLevels(bars, 100)

	assert.Equal(t, []float64{1.1300}, levels.Resistances)
	assert.Equal(t, []float64{1.0800}, levels.Supports)
}
