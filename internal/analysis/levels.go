package analysis

import (
	"math"
	"sort"

	"forex-signal-go/internal/twelvedata"
)

// Levels holds support and resistance candidates relative to the latest
// close. Supports are sorted descending and resistances ascending, so the
// first element of each is the nearest level.
type Levels struct {
	Supports    []float64
	Resistances []float64
}

// NearestSupport returns the closest support below the current price, or 0
// with ok=false when none was found.
func (l Levels) NearestSupport() (float64, bool) {
	if len(l.Supports) == 0 {
		return 0, false
	}
	return l.Supports[0], true
}

// NearestResistance returns the closest resistance above the current price.
func (l Levels) NearestResistance() (float64, bool) {
	if len(l.Resistances) == 0 {
		return 0, false
	}
	return l.Resistances[0], true
}

// FindDynamicLevels locates swing points over the last lookback bars. A bar
// is an up fractal when its high exceeds the highs of the two bars on each
// side, and a down fractal symmetrically on lows. Bars whose extremes sit
// more than five standard deviations from the mean close are discarded
// first so a single bad print cannot become a level. When no fractal
// qualifies, the highest high and lowest low of the lookback window stand in.
func FindDynamicLevels(bars []twelvedata.OHLC, lookback int) Levels {
	if len(bars) < 5 {
		return Levels{}
	}

	mean, stdDev := closeStats(bars)
	filtered := make([]twelvedata.OHLC, 0, len(bars))
	for _, b := range bars {
		if math.Abs(b.High-mean) < 5*stdDev && math.Abs(b.Low-mean) < 5*stdDev {
			filtered = append(filtered, b)
		}
	}
	if len(filtered) < 5 {
		return Levels{}
	}

	currentPrice := filtered[len(filtered)-1].Close

	supportSet := map[float64]struct{}{}
	resistanceSet := map[float64]struct{}{}

	start := len(filtered) - 3
	end := len(filtered) - lookback
	if end < 2 {
		end = 2
	}
	for i := start; i >= end; i-- {
		h := filtered[i].High
		if h > filtered[i-1].High && h > filtered[i-2].High &&
			h > filtered[i+1].High && h > filtered[i+2].High && h > currentPrice {
			resistanceSet[h] = struct{}{}
		}
		l := filtered[i].Low
		if l < filtered[i-1].Low && l < filtered[i-2].Low &&
			l < filtered[i+1].Low && l < filtered[i+2].Low && l < currentPrice {
			supportSet[l] = struct{}{}
		}
	}

	levels := Levels{
		Supports:    setToSlice(supportSet),
		Resistances: setToSlice(resistanceSet),
	}

	// Fallback for strongly trending windows where no fractal formed. The
	// window is capped at the available history so a short series still
	// yields its extremes.
	window := lookback
	if window > len(filtered) {
		window = len(filtered)
	}
	if len(levels.Resistances) == 0 {
		high := filtered[len(filtered)-window].High
		for _, b := range filtered[len(filtered)-window:] {
			if b.High > high {
				high = b.High
			}
		}
		levels.Resistances = []float64{high}
	}
	if len(levels.Supports) == 0 {
		low := filtered[len(filtered)-window].Low
		for _, b := range filtered[len(filtered)-window:] {
			if b.Low < low {
				low = b.Low
			}
		}
		levels.Supports = []float64{low}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Supports)))
	sort.Float64s(levels.Resistances)
	return levels
}

// FindKeyLevels is the simpler window variant: resistance is the highest
// high and support the lowest low of the last lookback bars.
func FindKeyLevels(bars []twelvedata.OHLC, lookback int) Levels {
	if len(bars) < lookback {
		return Levels{}
	}
	window := bars[len(bars)-lookback:]
	high, low := window[0].High, window[0].Low
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return Levels{Supports: []float64{low}, Resistances: []float64{high}}
}

func closeStats(bars []twelvedata.OHLC) (mean, stdDev float64) {
	for _, b := range bars {
		mean += b.Close
	}
	mean /= float64(len(bars))
	var variance float64
	for _, b := range bars {
		variance += (b.Close - mean) * (b.Close - mean)
	}
	variance /= float64(len(bars))
	return mean, math.Sqrt(variance)
}

func setToSlice(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
