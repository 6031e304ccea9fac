package server

import (
	"net/http"

	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type statisticsHandler struct {
	logger  *zap.Logger
	signals *repository.SignalRepository
}

func newStatisticsHandler(deps Deps) *statisticsHandler {
	return &statisticsHandler{logger: deps.Logger, signals: deps.Signals}
}

func (h *statisticsHandler) register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	g := e.Group("/api/statistics", authMW)
	g.GET("", h.statistics)
	g.GET("/signal-summary", h.signalSummary)
	g.GET("/trade-history", h.tradeHistory)
}

type statisticsResponse struct {
	TotalTrades   int     `json:"totalTrades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"winRate"`
	AverageProfit float64 `json:"averageProfit"`
	AverageLoss   float64 `json:"averageLoss"`
	BestPair      string  `json:"bestPair"`
}

// statistics aggregates a user's closed trades into win/loss numbers.
func (h *statisticsHandler) statistics(c echo.Context) error {
	closed, err := h.signals.ClosedForUser(currentClaims(c).UserID)
	if err != nil {
		return err
	}

	resp := statisticsResponse{TotalTrades: len(closed), BestPair: "N/A"}
	if len(closed) == 0 {
		return c.JSON(http.StatusOK, resp)
	}

	var totalProfit, totalLoss float64
	profitByPair := map[string]float64{}
	for _, trade := range closed {
		pnl := 0.0
		if trade.Pnl != nil {
			pnl = *trade.Pnl
		}
		profitByPair[trade.Symbol] += pnl
		switch {
		case pnl > 0:
			resp.Wins++
			totalProfit += pnl
		case pnl < 0:
			resp.Losses++
			totalLoss += pnl
		}
	}

	resp.WinRate = float64(resp.Wins) / float64(resp.TotalTrades) * 100
	if resp.Wins > 0 {
		resp.AverageProfit = totalProfit / float64(resp.Wins)
	}
	if resp.Losses > 0 {
		resp.AverageLoss = totalLoss / float64(resp.Losses)
	}

	bestPnl := 0.0
	for pair, pnl := range profitByPair {
		if pnl > bestPnl {
			bestPnl = pnl
			resp.BestPair = pair
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// signalSummary counts generated signals per direction for each source.
func (h *statisticsHandler) signalSummary(c echo.Context) error {
	userID := currentClaims(c).UserID

	ai, err := h.signals.SummaryForUser(userID, models.SourceAI)
	if err != nil {
		return err
	}
	technical, err := h.signals.SummaryForUser(userID, models.SourceTechnical)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ai":        ai,
		"technical": technical,
	})
}

func (h *statisticsHandler) tradeHistory(c echo.Context) error {
	history, err := h.signals.HistoryForUser(currentClaims(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, history)
}
