package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forex-signal-go/internal/cache"
	"forex-signal-go/internal/ratelimit"
	"forex-signal-go/internal/twelvedata"

	"go.uber.org/zap"
)

const (
	ohlcCacheTTL   = time.Hour
	ohlcOutputSize = 5000
)

// BarProviderInterface serves bar history for a symbol and timeframe.
type BarProviderInterface interface {
	GetBars(ctx context.Context, symbol, timeframe string) ([]twelvedata.OHLC, error)
}

// BarProvider fetches time series bars through the shared provider client,
// behind the shared request spacing and a one hour in-process cache.
type BarProvider struct {
	client  twelvedata.ClientInterface
	limiter *ratelimit.IntervalLimiter
	cache   *cache.TTLCache
	logger  *zap.Logger
}

var _ BarProviderInterface = (*BarProvider)(nil)

func NewBarProvider(client twelvedata.ClientInterface, limiter *ratelimit.IntervalLimiter, logger *zap.Logger) *BarProvider {
	return &BarProvider{
		client:  client,
		limiter: limiter,
		cache:   cache.New(),
		logger:  logger,
	}
}

// GetBars returns bars oldest first. Cached entries bypass the rate limiter
// entirely so repeated analyses of the same pair cost no provider credits.
func (p *BarProvider) GetBars(ctx context.Context, symbol, timeframe string) ([]twelvedata.OHLC, error) {
	normalized := strings.ToUpper(symbol)
	key := normalized + "_" + timeframe

	if cached, ok := p.cache.Get(key); ok {
		p.logger.Debug("Serving bars from cache", zap.String("symbol", normalized), zap.String("timeframe", timeframe))
		return cached.([]twelvedata.OHLC), nil
	}

	if err := p.limiter.Acquire(ctx, fmt.Sprintf("bars %s (%s)", normalized, timeframe)); err != nil {
		return nil, err
	}

	bars, err := p.client.GetTimeSeries(ctx, normalized, MapTimeframe(timeframe), ohlcOutputSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", normalized, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bar data available for %s (%s)", normalized, timeframe)
	}

	p.cache.Set(key, bars, ohlcCacheTTL)
	p.logger.Info("Fetched bar history",
		zap.String("symbol", normalized),
		zap.String("timeframe", timeframe),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}
