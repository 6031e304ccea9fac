package monitor

import (
	"forex-signal-go/internal/models"
)

// TransitionKind enumerates the possible outcomes of evaluating one signal
// against a current price.
type TransitionKind int

const (
	// NoTransition leaves the record untouched this cycle.
	NoTransition TransitionKind = iota
	// Entered moves a pending record to open at Price.
	Entered
	// Closed moves an open record to the terminal Status at Price with Pnl.
	Closed
)

// Transition describes the state change the worker must persist, if any.
type Transition struct {
	Kind   TransitionKind
	Status string  // terminal status for Kind == Closed
	Price  float64 // open price for Entered, close price for Closed
	Pnl    float64 // realized P/L for Closed, in quote-currency price units
}

// Evaluate applies the entry/exit rules to one active signal. Pure: no I/O,
// no persistence. A nil price means the symbol had no usable quote this
// cycle and the record is skipped.
func Evaluate(sig *models.SignalRecord, price *float64) Transition {
	if price == nil {
		return Transition{Kind: NoTransition}
	}

	switch sig.Status {
	case models.StatusPending:
		return evaluatePending(sig, *price)
	case models.StatusOpen:
		return evaluateOpen(sig, *price)
	default:
		return Transition{Kind: NoTransition}
	}
}

// evaluatePending checks whether price has retraced into the entry zone.
// The zone bounds are normalized with min/max so a generator that emitted
// them in the wrong order cannot invert the containment test.
func evaluatePending(sig *models.SignalRecord, price float64) Transition {
	lower, upper := sig.EntryZoneStart, sig.EntryZoneEnd
	if lower > upper {
		lower, upper = upper, lower
	}
	if price < lower || price > upper {
		return Transition{Kind: NoTransition}
	}
	return Transition{Kind: Entered, Price: price}
}

// evaluateOpen checks the exit thresholds. Take-profit is checked before
// stop-loss, so on degenerate data where both hold, take-profit wins.
func evaluateOpen(sig *models.SignalRecord, price float64) Transition {
	if sig.OpenPrice == nil {
		// Should not happen for an open record; leave it for inspection.
		return Transition{Kind: NoTransition}
	}

	var status string
	var closePrice float64

	switch sig.Direction {
	case models.DirectionBuy:
		if price >= sig.TakeProfit {
			status, closePrice = models.StatusClosedTP, sig.TakeProfit
		} else if price <= sig.StopLoss {
			status, closePrice = models.StatusClosedSL, sig.StopLoss
		}
	case models.DirectionSell:
		if price <= sig.TakeProfit {
			status, closePrice = models.StatusClosedTP, sig.TakeProfit
		} else if price >= sig.StopLoss {
			status, closePrice = models.StatusClosedSL, sig.StopLoss
		}
	}

	if status == "" {
		return Transition{Kind: NoTransition}
	}

	return Transition{
		Kind:   Closed,
		Status: status,
		Price:  closePrice,
		Pnl:    Pnl(sig.Direction, *sig.OpenPrice, closePrice),
	}
}

// Pnl is the realized profit/loss in quote-currency price units for a unit
// position: close-open for BUY, open-close for SELL. No lot-size or
// contract-size normalization is applied anywhere in the system.
func Pnl(direction string, openPrice, closePrice float64) float64 {
	if direction == models.DirectionSell {
		return openPrice - closePrice
	}
	return closePrice - openPrice
}
