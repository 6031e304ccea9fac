package quotes

import (
	"context"
	"fmt"

	"forex-signal-go/internal/ratelimit"
	"forex-signal-go/internal/twelvedata"

	"go.uber.org/zap"
)

// SourceInterface defines the interface for the batched quote source.
type SourceInterface interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*float64, error)
}

// Source fetches current prices for a set of symbols in one provider call.
// Every call queues behind the process-wide interval limiter.
type Source struct {
	client  twelvedata.ClientInterface
	limiter *ratelimit.IntervalLimiter
	logger  *zap.Logger
	label   string
}

var _ SourceInterface = (*Source)(nil)

// NewSource creates a quote source. The label identifies this consumer in
// rate-limiter diagnostics.
func NewSource(client twelvedata.ClientInterface, limiter *ratelimit.IntervalLimiter, logger *zap.Logger, label string) *Source {
	return &Source{
		client:  client,
		limiter: limiter,
		logger:  logger,
		label:   label,
	}
}

// GetQuotes returns the best-known current price per requested symbol.
// Every requested symbol appears as a key; an entry that is missing,
// malformed, or flagged erroneous upstream maps to nil, which callers must
// treat as "skip this symbol this cycle". A batch-level failure returns an
// error and no partial data; twelvedata.ErrRateLimited passes through typed.
func (s *Source) GetQuotes(ctx context.Context, symbols []string) (map[string]*float64, error) {
	result := make(map[string]*float64, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	if err := s.limiter.Acquire(ctx, s.label); err != nil {
		return nil, fmt.Errorf("limiter wait aborted: %w", err)
	}

	quotes, err := s.client.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	for _, symbol := range symbols {
		q, ok := quotes[symbol]
		if !ok {
			s.logger.Warn("Symbol missing from batch quote response", zap.String("symbol", symbol))
			result[symbol] = nil
			continue
		}
		price, ok := q.Price()
		if !ok {
			s.logger.Warn("Symbol quote unusable this cycle", zap.String("symbol", symbol))
			result[symbol] = nil
			continue
		}
		p := price
		result[symbol] = &p
	}

	return result, nil
}
