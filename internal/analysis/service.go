package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"forex-signal-go/internal/cache"
	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"
	"forex-signal-go/internal/twelvedata"

	"go.uber.org/zap"
)

const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalHold = "HOLD"

	signalCacheTTL = 5 * time.Minute
	levelsLookback = 24
)

// AISignal is the full model analysis returned to clients. Plan fields are
// nil for a HOLD verdict.
type AISignal struct {
	Symbol          string   `json:"symbol"`
	Signal          string   `json:"signal"`
	EntryZoneStart  *float64 `json:"entryZoneStart"`
	EntryZoneEnd    *float64 `json:"entryZoneEnd"`
	TakeProfit      *float64 `json:"takeProfitPrice"`
	StopLoss        *float64 `json:"stopLossPrice"`
	Reasoning       string   `json:"reasoning,omitempty"`
	Trend           string   `json:"trend"`
	Volume          string   `json:"volume"`
	BuyerPercentage float64  `json:"buyer_percentage"`
	Confidence      string   `json:"confidence"`
	Support         *float64 `json:"support"`
	Resistance      *float64 `json:"resistance"`
}

// Service orchestrates both analysis paths and records actionable signals
// for lifecycle monitoring.
type Service struct {
	bars      BarProviderInterface
	predictor PredictorInterface
	signals   *repository.SignalRepository
	cache     *cache.TTLCache
	logger    *zap.Logger
}

func NewService(bars BarProviderInterface, predictor PredictorInterface, signals *repository.SignalRepository, logger *zap.Logger) *Service {
	return &Service{
		bars:      bars,
		predictor: predictor,
		signals:   signals,
		cache:     cache.New(),
		logger:    logger,
	}
}

// AnalyzeAI runs the model path: fetch bars, predict, anchor a trade plan on
// dynamic levels and persist a pending record for actionable verdicts. A
// failed prediction degrades to HOLD with the failure as reasoning instead
// of surfacing an error. forceRefresh bypasses the result cache.
func (s *Service) AnalyzeAI(ctx context.Context, symbol, timeframe string, userID uint, forceRefresh bool) (*AISignal, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !IsSupportedPair(symbol) {
		return nil, fmt.Errorf("unsupported forex symbol: %s", symbol)
	}
	normalized := strings.ToUpper(symbol)

	cacheKey := fmt.Sprintf("%s_%s_RF_ANALYSIS", normalized, timeframe)
	if !forceRefresh {
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.logger.Debug("Serving model analysis from cache", zap.String("symbol", normalized))
			return cached.(*AISignal), nil
		}
	}

	bars, err := s.bars.GetBars(ctx, normalized, timeframe)
	if err != nil {
		return nil, err
	}

	result := &AISignal{
		Symbol:          normalized,
		Signal:          SignalHold,
		Trend:           "N/A",
		Volume:          "N/A",
		BuyerPercentage: 50,
		Confidence:      "N/A",
	}

	pred, err := s.predictor.Predict(ctx, normalized, timeframe, bars)
	if err != nil {
		result.Reasoning = fmt.Sprintf("AI analysis failed: %v. The system will default to HOLD.", err)
		s.logger.Error("Prediction failed, degrading to HOLD",
			zap.String("symbol", normalized),
			zap.Error(err),
		)
	} else {
		result.Signal = pred.Signal
		result.BuyerPercentage = pred.BuyerPercentage
		result.Confidence = pred.Confidence
	}

	currentClose := bars[len(bars)-1].Close
	places := DecimalPlaces(normalized)
	levels := FindDynamicLevels(bars, levelsLookback)
	if support, ok := levels.NearestSupport(); ok {
		result.Support = roundTo(support, places)
	}
	if resistance, ok := levels.NearestResistance(); ok {
		result.Resistance = roundTo(resistance, places)
	}

	if direction := Direction(result.Signal); direction != "" {
		plan := buildModelPlan(direction, currentClose, PipValue(normalized), levels)
		result.EntryZoneStart = &plan.EntryZoneStart
		result.EntryZoneEnd = &plan.EntryZoneEnd
		result.TakeProfit = &plan.TakeProfit
		result.StopLoss = &plan.StopLoss

		s.record(userID, normalized, timeframe, models.SourceAI, result.Signal, plan)
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	result.Trend = TrendLabel(closes)
	result.Volume = VolatilityLabel(highs, lows, closes)

	if !forceRefresh {
		s.cache.Set(cacheKey, result, signalCacheTTL)
	}
	return result, nil
}

// AnalyzeTechnical runs the indicator vote and persists actionable summaries.
func (s *Service) AnalyzeTechnical(ctx context.Context, symbol, timeframe string, userID uint) (*TechnicalResult, error) {
	if !IsSupportedPair(symbol) {
		return nil, fmt.Errorf("unsupported forex symbol: %s", symbol)
	}
	normalized := strings.ToUpper(symbol)

	bars, err := s.bars.GetBars(ctx, normalized, timeframe)
	if err != nil {
		return nil, err
	}

	result := RunTechnicalVote(normalized, bars)
	if result.Plan != nil {
		s.record(userID, normalized, timeframe, models.SourceTechnical, result.Summary, *result.Plan)
	}
	return &result, nil
}

// record stores an actionable signal as pending. Persistence failures are
// logged but never fail the analysis that produced the signal.
func (s *Service) record(userID uint, symbol, timeframe, source, summary string, plan TradePlan) {
	if userID == 0 || s.signals == nil {
		return
	}
	sig := &models.SignalRecord{
		UserID:         userID,
		Symbol:         symbol,
		Timeframe:      timeframe,
		Source:         source,
		Direction:      Direction(summary),
		Summary:        summary,
		EntryZoneStart: plan.EntryZoneStart,
		EntryZoneEnd:   plan.EntryZoneEnd,
		TakeProfit:     plan.TakeProfit,
		StopLoss:       plan.StopLoss,
		Status:         models.StatusPending,
	}
	if err := s.signals.Create(sig); err != nil {
		s.logger.Error("Failed to save generated signal",
			zap.String("symbol", symbol),
			zap.String("source", source),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Saved generated signal",
		zap.String("symbol", symbol),
		zap.String("source", source),
		zap.String("summary", summary),
	)
}

// GetBars exposes the provider for the market data endpoint.
func (s *Service) GetBars(ctx context.Context, symbol, timeframe string) ([]twelvedata.OHLC, error) {
	if !IsSupportedPair(symbol) {
		return nil, fmt.Errorf("unsupported forex symbol: %s", symbol)
	}
	return s.bars.GetBars(ctx, strings.ToUpper(symbol), timeframe)
}

func roundTo(v float64, places int) *float64 {
	factor := math.Pow10(places)
	rounded := math.Round(v*factor) / factor
	return &rounded
}
