package analysis

import (
	"strings"

	"forex-signal-go/internal/models"
)

// TradePlan is the price geometry attached to an actionable signal.
type TradePlan struct {
	EntryZoneStart float64 `json:"entryZoneStart"`
	EntryZoneEnd   float64 `json:"entryZoneEnd"`
	StopLoss       float64 `json:"stopLossPrice"`
	TakeProfit     float64 `json:"takeProfitPrice"`
}

// Direction reduces a summary like "STRONG BUY" to its trade direction.
// The empty string means the summary is not actionable.
func Direction(summary string) string {
	switch {
	case strings.Contains(summary, "BUY"):
		return models.DirectionBuy
	case strings.Contains(summary, "SELL"):
		return models.DirectionSell
	default:
		return ""
	}
}

// buildModelPlan anchors the plan on the nearest level when one exists,
// with stop loss 20 pips beyond it and take profit at twice the risk
// distance. Without a level it falls back to a zone around the current
// close with fixed 50 pip stop and 100 pip target.
func buildModelPlan(direction string, currentClose, pip float64, levels Levels) TradePlan {
	const (
		entryPips    = 10
		slBufferPips = 20
		slFallback   = 50
		tpFallback   = 100
	)

	if direction == models.DirectionBuy {
		if support, ok := levels.NearestSupport(); ok {
			start := support + entryPips*pip
			sl := support - slBufferPips*pip
			return TradePlan{
				EntryZoneStart: start,
				EntryZoneEnd:   support,
				StopLoss:       sl,
				TakeProfit:     start + 2*(start-sl),
			}
		}
		return TradePlan{
			EntryZoneStart: currentClose,
			EntryZoneEnd:   currentClose - entryPips*pip,
			StopLoss:       currentClose - slFallback*pip,
			TakeProfit:     currentClose + tpFallback*pip,
		}
	}

	if resistance, ok := levels.NearestResistance(); ok {
		start := resistance - entryPips*pip
		sl := resistance + slBufferPips*pip
		return TradePlan{
			EntryZoneStart: start,
			EntryZoneEnd:   resistance,
			StopLoss:       sl,
			TakeProfit:     start - 2*(sl-start),
		}
	}
	return TradePlan{
		EntryZoneStart: currentClose,
		EntryZoneEnd:   currentClose + entryPips*pip,
		StopLoss:       currentClose + slFallback*pip,
		TakeProfit:     currentClose - tpFallback*pip,
	}
}

// buildIndicatorPlan is the flavor used by the indicator vote: a wider
// entry zone, a fixed 500 pip target and an 80 pip fallback stop.
func buildIndicatorPlan(direction string, currentClose, pip float64, levels Levels) TradePlan {
	const (
		entryPips    = 20
		slBufferPips = 20
		slFallback   = 80
		fallbackZone = 15
		targetPips   = 500
	)

	if direction == models.DirectionBuy {
		if support, ok := levels.NearestSupport(); ok && support < currentClose {
			start := support + entryPips*pip
			return TradePlan{
				EntryZoneStart: start,
				EntryZoneEnd:   support,
				StopLoss:       support - slBufferPips*pip,
				TakeProfit:     start + targetPips*pip,
			}
		}
		return TradePlan{
			EntryZoneStart: currentClose,
			EntryZoneEnd:   currentClose - fallbackZone*pip,
			StopLoss:       currentClose - slFallback*pip,
			TakeProfit:     currentClose + targetPips*pip,
		}
	}

	if resistance, ok := levels.NearestResistance(); ok && resistance > currentClose {
		start := resistance - entryPips*pip
		return TradePlan{
			EntryZoneStart: start,
			EntryZoneEnd:   resistance,
			StopLoss:       resistance + slBufferPips*pip,
			TakeProfit:     start - targetPips*pip,
		}
	}
	return TradePlan{
		EntryZoneStart: currentClose,
		EntryZoneEnd:   currentClose + fallbackZone*pip,
		StopLoss:       currentClose + slFallback*pip,
		TakeProfit:     currentClose - targetPips*pip,
	}
}
