package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forex-signal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimited marks a batch-level provider rejection caused by the API
// credit budget. Callers treat it as transient and retry on the next cycle.
var ErrRateLimited = errors.New("provider rate limit exceeded")

// rateLimitMarker is the substring Twelve Data puts in credit-exhaustion messages.
const rateLimitMarker = "API credits"

// ClientInterface defines the interface for the Twelve Data REST API client.
type ClientInterface interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
	GetTimeSeries(ctx context.Context, symbol, interval string, outputSize int) ([]OHLC, error)
}

// Quote is one symbol's entry in a batched /quote response.
// Close stays a string on the wire; Price() parses and validates it.
type Quote struct {
	Symbol string `json:"symbol"`
	Close  string `json:"close"`
	Status string `json:"status"`
}

// Price returns the parsed close price, or ok=false when the entry is
// flagged as erroneous or the value is malformed.
func (q Quote) Price() (float64, bool) {
	if q.Status == "error" || q.Close == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(q.Close, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// OHLC is a single historical bar, oldest-first after normalization.
type OHLC struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Client is a client for the Twelve Data REST API.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
	timeout time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Twelve Data REST API client.
func NewClient(cfg *config.Provider, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// Client-side guard on top of the process-wide interval limiter.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: limiter,
		timeout: time.Duration(cfg.TimeoutSec) * time.Second,
	}
}

// batchError is the provider's error envelope: {"code": 429, "message": "...", "status": "error"}.
type batchError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// doRequest executes a GET with the client-side rate guard and a bounded timeout.
func (c *Client) doRequest(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Executing provider request", zap.String("path", path))
	resp, err := c.client.R().
		SetContext(reqCtx).
		SetQueryParams(params).
		SetQueryParam("apikey", c.apiKey).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider request failed with status %s: %s", resp.Status(), resp.String())
	}

	return resp.Body(), nil
}

// classifyBatchError maps the provider's error envelope onto our error
// taxonomy: credit-budget rejections are the distinguished retryable case.
func classifyBatchError(e batchError) error {
	if strings.Contains(e.Message, rateLimitMarker) {
		return fmt.Errorf("provider error %d: %s: %w", e.Code, e.Message, ErrRateLimited)
	}
	return fmt.Errorf("provider error %d: %s", e.Code, e.Message)
}

// GetQuotes fetches current quotes for a batch of symbols with a single call.
// The response is keyed by symbol; a single-symbol request collapses the
// envelope and is re-wrapped here so callers always see the map shape.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	body, err := c.doRequest(ctx, "/quote", map[string]string{
		"symbol": strings.Join(symbols, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}

	// A batch-level rejection replaces the whole payload with an error envelope.
	var batchErr batchError
	if err := json.Unmarshal(body, &batchErr); err == nil && batchErr.Code >= 400 && batchErr.Message != "" {
		return nil, classifyBatchError(batchErr)
	}

	if len(symbols) == 1 {
		var single Quote
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("failed to decode quote response: %w", err)
		}
		return map[string]Quote{symbols[0]: single}, nil
	}

	var quotes map[string]Quote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return quotes, nil
}

// timeSeriesResponse is the wire shape of /time_series.
type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GetTimeSeries fetches historical OHLC bars for one symbol. The provider
// returns newest-first; the result is reversed to oldest-first.
func (c *Client) GetTimeSeries(ctx context.Context, symbol, interval string, outputSize int) ([]OHLC, error) {
	body, err := c.doRequest(ctx, "/time_series", map[string]string{
		"symbol":     symbol,
		"interval":   interval,
		"outputsize": strconv.Itoa(outputSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get time series for %s: %w", symbol, err)
	}

	var ts timeSeriesResponse
	if err := json.Unmarshal(body, &ts); err != nil {
		return nil, fmt.Errorf("failed to decode time series response: %w", err)
	}
	if ts.Code >= 400 {
		return nil, classifyBatchError(batchError{Code: ts.Code, Message: ts.Message, Status: ts.Status})
	}
	if len(ts.Values) == 0 {
		return nil, fmt.Errorf("time series for %s is empty or malformed", symbol)
	}

	bars := make([]OHLC, 0, len(ts.Values))
	for i := len(ts.Values) - 1; i >= 0; i-- {
		v := ts.Values[i]
		t, err := parseBarTime(v.Datetime)
		if err != nil {
			c.logger.Warn("Skipping bar with malformed datetime",
				zap.String("symbol", symbol), zap.String("datetime", v.Datetime))
			continue
		}
		open, err1 := strconv.ParseFloat(v.Open, 64)
		high, err2 := strconv.ParseFloat(v.High, 64)
		low, err3 := strconv.ParseFloat(v.Low, 64)
		closePx, err4 := strconv.ParseFloat(v.Close, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			c.logger.Warn("Skipping bar with malformed prices",
				zap.String("symbol", symbol), zap.String("datetime", v.Datetime))
			continue
		}
		var volume int64
		if v.Volume != "" {
			volume, _ = strconv.ParseInt(v.Volume, 10, 64)
		}
		bars = append(bars, OHLC{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("time series for %s contained no usable bars", symbol)
	}
	return bars, nil
}

// parseBarTime accepts both the intraday and daily datetime layouts.
func parseBarTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
