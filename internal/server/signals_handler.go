package server

import (
	"net/http"

	"forex-signal-go/internal/analysis"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type signalsHandler struct {
	logger   *zap.Logger
	analysis *analysis.Service
}

func newSignalsHandler(deps Deps) *signalsHandler {
	return &signalsHandler{logger: deps.Logger, analysis: deps.Analysis}
}

func (h *signalsHandler) register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	ai := e.Group("/api/ai", authMW)
	ai.POST("/analyze", h.analyzeAI)
	ai.POST("/request-signal", h.requestSignal)

	technical := e.Group("/api/technical", authMW)
	technical.POST("/analyze", h.analyzeTechnical)
}

type analyzeBody struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

func (h *signalsHandler) analyzeAI(c echo.Context) error {
	var req analyzeBody
	if err := c.Bind(&req); err != nil || req.Symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Symbol is required.")
	}
	if req.Timeframe == "" {
		req.Timeframe = "4h"
	}

	result, err := h.analysis.AnalyzeAI(c.Request().Context(), req.Symbol, req.Timeframe, currentClaims(c).UserID, false)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type requestSignalBody struct {
	Symbol     string `json:"symbol"`
	SignalType string `json:"signalType"`
	Timeframe  string `json:"timeframe"`
}

// requestSignal is the on-demand variant: it always bypasses the analysis
// cache so the user gets a freshly generated signal. The requested type is
// validated for API compatibility but the model decides the direction.
func (h *signalsHandler) requestSignal(c echo.Context) error {
	var req requestSignalBody
	if err := c.Bind(&req); err != nil || req.Symbol == "" || req.SignalType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Symbol and signalType are required.")
	}
	if req.Timeframe == "" {
		req.Timeframe = "4h"
	}

	result, err := h.analysis.AnalyzeAI(c.Request().Context(), req.Symbol, req.Timeframe, currentClaims(c).UserID, true)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *signalsHandler) analyzeTechnical(c echo.Context) error {
	var req analyzeBody
	if err := c.Bind(&req); err != nil || req.Symbol == "" || req.Timeframe == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Symbol and timeframe are required.")
	}

	result, err := h.analysis.AnalyzeTechnical(c.Request().Context(), req.Symbol, req.Timeframe, currentClaims(c).UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
