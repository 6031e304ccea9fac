package analysis

import (
	"context"
	"errors"
	"testing"

	"forex-signal-go/internal/models"
	"forex-signal-go/internal/repository"
	"forex-signal-go/internal/twelvedata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockBarProvider is a mock implementation of BarProviderInterface.
type MockBarProvider struct {
	mock.Mock
}

func (m *MockBarProvider) GetBars(ctx context.Context, symbol, timeframe string) ([]twelvedata.OHLC, error) {
	args := m.Called(ctx, symbol, timeframe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]twelvedata.OHLC), args.Error(1)
}

// MockPredictor is a mock implementation of PredictorInterface.
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, symbol, timeframe string, bars []twelvedata.OHLC) (*Prediction, error) {
	args := m.Called(ctx, symbol, timeframe, bars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Prediction), args.Error(1)
}

func setupService(t *testing.T) (*Service, *repository.SignalRepository, *MockBarProvider, *MockPredictor) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.SignalRecord{}))

	repo := repository.NewSignalRepository(db)
	bars := new(MockBarProvider)
	predictor := new(MockPredictor)
	svc := NewService(bars, predictor, repo, zap.NewNop())
	return svc, repo, bars, predictor
}

func TestAnalyzeAI_RejectsUnsupportedSymbol(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.AnalyzeAI(context.Background(), "BTC/USD", "1d", 1, false)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestAnalyzeAI_BuyVerdictBuildsPlanAndPersists(t *testing.T) {
	// Arrange
	svc, repo, bars, predictor := setupService(t)
	history := choppyBars(120, 1.1000)
	bars.On("GetBars", mock.Anything, "EUR/USD", "1d").Return(history, nil).Once()
	predictor.On("Predict", mock.Anything, "EUR/USD", "1d", history).
		Return(&Prediction{Signal: SignalBuy, BuyerPercentage: 72, Confidence: "High"}, nil).Once()

	// Act
	result, err := svc.AnalyzeAI(context.Background(), "eur/usd", "1d", 42, false)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, SignalBuy, result.Signal)
	assert.Equal(t, 72.0, result.BuyerPercentage)
	assert.NotNil(t, result.EntryZoneStart)
	assert.NotNil(t, result.EntryZoneEnd)
	assert.NotNil(t, result.TakeProfit)
	assert.NotNil(t, result.StopLoss)

	active, _ := repo.ListActive()
	assert.Len(t, active, 1)
	assert.Equal(t, uint(42), active[0].UserID)
	assert.Equal(t, "EUR/USD", active[0].Symbol)
	assert.Equal(t, models.SourceAI, active[0].Source)
	assert.Equal(t, models.DirectionBuy, active[0].Direction)
	assert.Equal(t, models.StatusPending, active[0].Status)
	assert.Equal(t, *result.EntryZoneStart, active[0].EntryZoneStart)
	assert.Equal(t, *result.TakeProfit, active[0].TakeProfit)
}

func TestAnalyzeAI_PredictionFailureDegradesToHold(t *testing.T) {
	// Arrange
	svc, repo, bars, predictor := setupService(t)
	history := choppyBars(120, 1.1000)
	bars.On("GetBars", mock.Anything, "EUR/USD", "1d").Return(history, nil).Once()
	predictor.On("Predict", mock.Anything, "EUR/USD", "1d", history).
		Return(nil, errors.New("model file not found")).Once()

	// Act
	result, err := svc.AnalyzeAI(context.Background(), "EUR/USD", "1d", 1, false)

	// Assert: the analysis still succeeds with a HOLD verdict and no plan.
	assert.NoError(t, err)
	assert.Equal(t, SignalHold, result.Signal)
	assert.Contains(t, result.Reasoning, "model file not found")
	assert.Nil(t, result.EntryZoneStart)
	assert.Nil(t, result.TakeProfit)

	active, _ := repo.ListActive()
	assert.Empty(t, active)
}

func TestAnalyzeAI_CachesResults(t *testing.T) {
	// Arrange
	svc, _, bars, predictor := setupService(t)
	history := choppyBars(120, 1.1000)
	bars.On("GetBars", mock.Anything, "EUR/USD", "1d").Return(history, nil).Once()
	predictor.On("Predict", mock.Anything, "EUR/USD", "1d", history).
		Return(&Prediction{Signal: SignalHold}, nil).Once()

	// Act: the second call must be served from cache.
	_, err := svc.AnalyzeAI(context.Background(), "EUR/USD", "1d", 1, false)
	assert.NoError(t, err)
	_, err = svc.AnalyzeAI(context.Background(), "EUR/USD", "1d", 1, false)
	assert.NoError(t, err)

	// Assert
	bars.AssertNumberOfCalls(t, "GetBars", 1)
	predictor.AssertNumberOfCalls(t, "Predict", 1)
}

func TestAnalyzeAI_ForceRefreshBypassesCache(t *testing.T) {
	// Arrange
	svc, _, bars, predictor := setupService(t)
	history := choppyBars(120, 1.1000)
	bars.On("GetBars", mock.Anything, "EUR/USD", "1d").Return(history, nil).Twice()
	predictor.On("Predict", mock.Anything, "EUR/USD", "1d", history).
		Return(&Prediction{Signal: SignalHold}, nil).Twice()

	// Act
	_, err := svc.AnalyzeAI(context.Background(), "EUR/USD", "1d", 1, true)
	assert.NoError(t, err)
	_, err = svc.AnalyzeAI(context.Background(), "EUR/USD", "1d", 1, true)
	assert.NoError(t, err)

	// Assert
	bars.AssertNumberOfCalls(t, "GetBars", 2)
}

func TestAnalyzeTechnical_NotEnoughData(t *testing.T) {
	// Arrange
	svc, repo, bars, _ := setupService(t)
	bars.On("GetBars", mock.Anything, "EUR/USD", "1d").Return(choppyBars(30, 1.1000), nil).Once()

	// Act
	result, err := svc.AnalyzeTechnical(context.Background(), "EUR/USD", "1d", 1)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "Not Enough Data", result.Summary)
	assert.Nil(t, result.Plan)

	active, _ := repo.ListActive()
	assert.Empty(t, active)
}

func TestRunTechnicalVote_ReportsAllIndicators(t *testing.T) {
	result := RunTechnicalVote("EUR/USD", choppyBars(120, 1.1000))

	assert.Len(t, result.Indicators, 5)
	for _, name := range []string{"RSI", "Stochastic", "MACD", "MA_Cross", "BBands"} {
		assert.Contains(t, result.Indicators, name)
	}
}

func TestRunTechnicalVote_ActionableSummaryCarriesPlan(t *testing.T) {
	// A long flat stretch ending in a single sharp drop leaves the market
	// deeply oversold: RSI, stochastic and the Bollinger break all vote BUY
	// while the trend indicators vote SELL, a net BUY summary.
	bars := make([]twelvedata.OHLC, 150)
	for i := range bars {
		bars[i] = twelvedata.OHLC{Open: 1.2000, High: 1.2004, Low: 1.1996, Close: 1.2000}
	}
	bars[149] = twelvedata.OHLC{Open: 1.2000, High: 1.2000, Low: 1.1795, Close: 1.1800}

	result := RunTechnicalVote("EUR/USD", bars)

	assert.Equal(t, SummaryBuy, result.Summary)
	assert.Equal(t, SummaryBuy, result.Indicators["RSI"])
	assert.Equal(t, SummaryBuy, result.Indicators["Stochastic"])
	assert.Equal(t, SummaryBuy, result.Indicators["BBands"])
	assert.Equal(t, SummarySell, result.Indicators["MACD"])
	assert.Equal(t, SummarySell, result.Indicators["MA_Cross"])

	assert.NotNil(t, result.Plan)
	assert.Greater(t, result.Plan.TakeProfit, result.Plan.EntryZoneStart)
	assert.Less(t, result.Plan.StopLoss, result.Plan.EntryZoneEnd)
}
