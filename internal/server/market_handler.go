package server

import (
	"fmt"
	"net/http"
	"strconv"

	"forex-signal-go/internal/analysis"
	"forex-signal-go/internal/news"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type marketHandler struct {
	logger   *zap.Logger
	analysis *analysis.Service
	news     news.ClientInterface
}

func newMarketHandler(deps Deps) *marketHandler {
	return &marketHandler{logger: deps.Logger, analysis: deps.Analysis, news: deps.News}
}

func (h *marketHandler) register(e *echo.Echo) {
	e.GET("/api/ohlc-data", h.ohlcData)
	e.GET("/api/news", h.marketNews)
}

type chartBar struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ohlcData serves the chart series for a pair, timestamps in unix seconds.
func (h *marketHandler) ohlcData(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Symbol is required.")
	}
	if !analysis.IsSupportedPair(symbol) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported forex symbol: %s", symbol))
	}
	timeframe := c.QueryParam("timeframe")
	if timeframe == "" {
		timeframe = "1d"
	}
	// Charting is daily-only; other timeframes get an empty series instead
	// of spending a provider credit.
	if timeframe != "1d" {
		return c.JSON(http.StatusOK, map[string]any{"ohlcData": []chartBar{}})
	}

	bars, err := h.analysis.GetBars(c.Request().Context(), symbol, timeframe)
	if err != nil {
		h.logger.Error("Failed to fetch chart data", zap.String("symbol", symbol), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch OHLC data for chart.")
	}

	chart := make([]chartBar, len(bars))
	for i, b := range bars {
		chart[i] = chartBar{
			Time:  b.Time.Unix(),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"ohlcData": chart})
}

func (h *marketHandler) marketNews(c echo.Context) error {
	max, _ := strconv.Atoi(c.QueryParam("max"))
	articles, err := h.news.Search(c.Request().Context(), news.Query{
		Query:   c.QueryParam("query"),
		Lang:    c.QueryParam("lang"),
		Country: c.QueryParam("country"),
		Max:     max,
	})
	if err != nil {
		h.logger.Error("Failed to fetch news", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": articles})
}
