package analysis

import (
	"forex-signal-go/internal/twelvedata"

	"github.com/cinar/indicator"
)

const (
	SummaryStrongBuy  = "STRONG BUY"
	SummaryBuy        = "BUY"
	SummaryNeutral    = "NEUTRAL"
	SummarySell       = "SELL"
	SummaryStrongSell = "STRONG SELL"
)

// TechnicalResult is the outcome of the indicator vote.
type TechnicalResult struct {
	Summary    string            `json:"summary"`
	Indicators map[string]string `json:"indicators"`
	Plan       *TradePlan        `json:"signalDetails"`
}

// RunTechnicalVote scores five oscillators and trend indicators on the bar
// history. Each votes BUY (+1), SELL (-1) or NEUTRAL (0); a net score of
// three or more in either direction upgrades the summary to STRONG.
func RunTechnicalVote(symbol string, bars []twelvedata.OHLC) TechnicalResult {
	result := TechnicalResult{
		Summary:    SummaryNeutral,
		Indicators: map[string]string{},
	}
	if len(bars) < 50 {
		result.Summary = "Not Enough Data"
		return result
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	currentClose := closes[len(closes)-1]

	score := 0
	vote := func(name string, verdict string, delta int) {
		result.Indicators[name] = verdict
		score += delta
	}

	_, rsi := indicator.RsiPeriod(14, closes)
	switch lastRsi := rsi[len(rsi)-1]; {
	case lastRsi > 70:
		vote("RSI", SummarySell, -1)
	case lastRsi < 30:
		vote("RSI", SummaryBuy, +1)
	default:
		vote("RSI", SummaryNeutral, 0)
	}

	k, _ := indicator.StochasticOscillator(highs, lows, closes)
	switch lastK := k[len(k)-1]; {
	case lastK > 80:
		vote("Stochastic", SummarySell, -1)
	case lastK < 20:
		vote("Stochastic", SummaryBuy, +1)
	default:
		vote("Stochastic", SummaryNeutral, 0)
	}

	macd, signal := indicator.Macd(closes)
	switch lastMacd, lastSignal := macd[len(macd)-1], signal[len(signal)-1]; {
	case lastMacd > lastSignal:
		vote("MACD", SummaryBuy, +1)
	case lastMacd < lastSignal:
		vote("MACD", SummarySell, -1)
	default:
		vote("MACD", SummaryNeutral, 0)
	}

	smaFast := indicator.Sma(9, closes)
	smaSlow := indicator.Sma(21, closes)
	switch fast, slow := smaFast[len(smaFast)-1], smaSlow[len(smaSlow)-1]; {
	case fast > slow:
		vote("MA_Cross", SummaryBuy, +1)
	case fast < slow:
		vote("MA_Cross", SummarySell, -1)
	default:
		vote("MA_Cross", SummaryNeutral, 0)
	}

	_, upper, lower := indicator.BollingerBands(closes)
	lastUpper, lastLower := upper[len(upper)-1], lower[len(lower)-1]
	percentB := (currentClose - lastLower) / (lastUpper - lastLower)
	switch {
	case percentB > 1.0:
		vote("BBands", SummarySell, -1)
	case percentB < 0.0:
		vote("BBands", SummaryBuy, +1)
	default:
		vote("BBands", SummaryNeutral, 0)
	}

	switch {
	case score >= 3:
		result.Summary = SummaryStrongBuy
	case score >= 1:
		result.Summary = SummaryBuy
	case score <= -3:
		result.Summary = SummaryStrongSell
	case score <= -1:
		result.Summary = SummarySell
	}

	if direction := Direction(result.Summary); direction != "" {
		levels := FindKeyLevels(bars, 100)
		plan := buildIndicatorPlan(direction, currentClose, PipValue(symbol), levels)
		result.Plan = &plan
	}
	return result
}

// TrendLabel classifies the latest close against a 20 period moving average.
func TrendLabel(closes []float64) string {
	if len(closes) < 20 {
		return "N/A"
	}
	sma := indicator.Sma(20, closes)
	last := closes[len(closes)-1]
	switch lastSma := sma[len(sma)-1]; {
	case last > lastSma:
		return "Uptrend"
	case last < lastSma:
		return "Downtrend"
	default:
		return "Sideways"
	}
}

// VolatilityLabel compares current ATR to its 20 period average. Readings
// more than 20% above average count as high volatility.
func VolatilityLabel(highs, lows, closes []float64) string {
	if len(closes) < 35 {
		return "N/A"
	}
	_, atr := indicator.Atr(14, highs, lows, closes)
	if len(atr) <= 20 {
		return "N/A"
	}
	avg := indicator.Sma(20, atr)
	if atr[len(atr)-1] > avg[len(avg)-1]*1.2 {
		return "High"
	}
	return "Normal"
}
