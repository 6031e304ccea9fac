package news

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forex-signal-go/internal/cache"
	"forex-signal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const newsCacheTTL = 5 * time.Minute

// Article is one news item as served to clients. Items missing a title,
// image, link or description are dropped before caching.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

// Query selects which articles to search for. Zero values fall back to a
// general forex search.
type Query struct {
	Query   string
	Lang    string
	Country string
	Max     int
}

func (q Query) normalize() Query {
	if q.Query == "" {
		q.Query = "forex"
	}
	if q.Lang == "" {
		q.Lang = "en"
	}
	if q.Country == "" {
		q.Country = "us"
	}
	if q.Max <= 0 {
		q.Max = 10
	}
	return q
}

func (q Query) cacheKey() string {
	return strings.Join([]string{q.Query, q.Lang, q.Country, strconv.Itoa(q.Max)}, "-")
}

// ClientInterface fetches market news.
type ClientInterface interface {
	Search(ctx context.Context, q Query) ([]Article, error)
}

// Client proxies the GNews search API with a short cache so repeated page
// loads cost no provider quota.
type Client struct {
	rest   *resty.Client
	apiKey string
	cache  *cache.TTLCache
	logger *zap.Logger
}

var _ ClientInterface = (*Client)(nil)

func NewClient(cfg config.News, logger *zap.Logger) *Client {
	return &Client{
		rest:   resty.New().SetBaseURL(cfg.BaseURL),
		apiKey: cfg.ApiKey,
		cache:  cache.New(),
		logger: logger,
	}
}

type searchResponse struct {
	Articles []Article `json:"articles"`
	Errors   []string  `json:"errors"`
}

// Search returns cached or freshly fetched articles for the query.
func (c *Client) Search(ctx context.Context, q Query) ([]Article, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("news API key is not configured")
	}
	q = q.normalize()

	if cached, ok := c.cache.Get(q.cacheKey()); ok {
		c.logger.Debug("Serving news from cache", zap.String("query", q.Query))
		return cached.([]Article), nil
	}

	var result searchResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       q.Query,
			"lang":    q.Lang,
			"country": q.Country,
			"max":     strconv.Itoa(q.Max),
			"apikey":  c.apiKey,
		}).
		SetResult(&result).
		SetError(&result).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}
	if resp.IsError() || len(result.Errors) > 0 {
		return nil, fmt.Errorf("news provider error: %s", strings.Join(result.Errors, ", "))
	}

	filtered := make([]Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.Title != "" && a.Image != "" && a.URL != "" && a.Description != "" {
			filtered = append(filtered, a)
		}
	}

	c.cache.Set(q.cacheKey(), filtered, newsCacheTTL)
	c.logger.Info("Fetched news articles",
		zap.String("query", q.Query),
		zap.Int("articles", len(filtered)),
	)
	return filtered, nil
}
