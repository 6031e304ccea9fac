package analysis

import (
	"sort"
	"strings"
)

var supportedPairs = map[string]struct{}{
	"EUR/USD": {},
	"GBP/USD": {},
	"USD/JPY": {},
	"USD/CAD": {},
	"USD/CHF": {},
	"XAU/USD": {},
}

// SupportedPairs returns the tradable symbols in a stable order.
func SupportedPairs() []string {
	pairs := make([]string, 0, len(supportedPairs))
	for p := range supportedPairs {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

// IsSupportedPair reports whether analysis is offered for the symbol.
func IsSupportedPair(symbol string) bool {
	_, ok := supportedPairs[strings.ToUpper(symbol)]
	return ok
}

// PipValue returns the price delta of one pip for the symbol.
// Gold trades in 0.1 steps, JPY pairs in 0.01, everything else in 0.0001.
func PipValue(symbol string) float64 {
	s := strings.ToUpper(symbol)
	if strings.Contains(s, "XAU") {
		return 0.1
	}
	if strings.Contains(s, "JPY") {
		return 0.01
	}
	return 0.0001
}

// DecimalPlaces returns the display precision for the symbol's prices.
func DecimalPlaces(symbol string) int {
	s := strings.ToUpper(symbol)
	if strings.Contains(s, "JPY") || strings.Contains(s, "XAU") {
		return 2
	}
	return 4
}

var timeframeToInterval = map[string]string{
	"1m":  "1min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"1d":  "1day",
	"1w":  "1week",
}

// MapTimeframe converts a client-facing timeframe into the provider's
// interval notation. Unknown values pass through unchanged.
func MapTimeframe(tf string) string {
	if mapped, ok := timeframeToInterval[tf]; ok {
		return mapped
	}
	return tf
}
